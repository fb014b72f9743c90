package app

import (
	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/utils"
)

type Config struct {
	JWTSecretKey string
	Port         string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		JWTSecretKey: utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		Port:         utils.GetEnv("PORT", "8080", log),
	}
}
