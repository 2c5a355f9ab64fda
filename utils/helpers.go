package utils

import (
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GetUserID returns the authenticated user set by the auth middleware.
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("userID"); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}

func GenerateUUID() string {
	return uuid.New().String()
}

func ClampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

// ExponentialBackoff returns base*2^(attempt-1), capped at max. attempt is the
// number of failures so far and starts at 1.
func ExponentialBackoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := math.Pow(2, float64(attempt-1))
	if float64(base)*factor >= float64(max) {
		return max
	}
	return time.Duration(float64(base) * factor)
}

func GetLogger() *logrus.Logger {
	return logrus.StandardLogger()
}
