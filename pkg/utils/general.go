package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// LoadConfig reads the optional .env file and wires viper to the environment.
func LoadConfig(path string) {
	envPath := filepath.Join(path, ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("[CONFIG] Failed to load %s: %v", envPath, err)
	}
	viper.AutomaticEnv()
}

func CreateFolder(folders ...string) error {
	for _, folder := range folders {
		if err := os.MkdirAll(folder, 0755); err != nil {
			return err
		}
	}
	return nil
}

// PanicIfNeeded panics on error so the REST recovery middleware can turn it
// into a typed HTTP response.
func PanicIfNeeded(err any, message ...string) {
	if err != nil {
		if len(message) > 0 && err == "record not found" {
			panic(message[0])
		}
		panic(err)
	}
}
