package logging

import (
	"time"

	"github.com/google/uuid"
)

// GenerateSessionID names one run in the log file, e.g. 20251217_205106_a7b3.
func GenerateSessionID() string {
	return time.Now().Format("20060102_150405") + "_" + uuid.NewString()[:4]
}
