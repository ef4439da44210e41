package validations

import (
	domainAdmin "github.com/AzielCF/az-reply/domains/admin"
	pkgError "github.com/AzielCF/az-reply/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateLearn(request domainAdmin.Command) error {
	err := validation.ValidateStruct(&request,
		validation.Field(&request.Trigger, validation.Required, validation.Length(2, 120)),
		validation.Field(&request.Response, validation.Required, validation.Length(1, 2000)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateForget(request domainAdmin.Command) error {
	err := validation.ValidateStruct(&request,
		validation.Field(&request.Trigger, validation.Required, validation.Length(2, 120)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateAnswer(request domainAdmin.Command) error {
	err := validation.ValidateStruct(&request,
		validation.Field(&request.PendingID, validation.Required),
		validation.Field(&request.Response, validation.Required, validation.Length(1, 2000)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
