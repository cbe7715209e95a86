package logging

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewDefaultsToInfoLevel(t *testing.T) {
	os.Unsetenv("FINMODEL_LOG_LEVEL")
	log := New()
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected default level info, got %v", log.GetLevel())
	}
}

func TestNewHonorsLogLevelEnvVar(t *testing.T) {
	os.Setenv("FINMODEL_LOG_LEVEL", "debug")
	defer os.Unsetenv("FINMODEL_LOG_LEVEL")

	log := New()
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level from env var, got %v", log.GetLevel())
	}
}

func TestNewFallsBackToInfoOnInvalidLevel(t *testing.T) {
	os.Setenv("FINMODEL_LOG_LEVEL", "not-a-level")
	defer os.Unsetenv("FINMODEL_LOG_LEVEL")

	log := New()
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected fallback to info on unparseable level, got %v", log.GetLevel())
	}
}

func TestNewWritesToStderr(t *testing.T) {
	log := New()
	if log.Out != os.Stderr {
		t.Fatalf("expected logger output set to stderr")
	}
}
