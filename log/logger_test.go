package log

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	now = time.Now().Unix()
	err = fmt.Errorf("error message")
)

func TestLogger(t *testing.T) {
	SetLogger(6, false, true)

	WithFields("timestamp", now, "err", err).Infof("test WithFields Infof at %v", now)
	WithFields("timestamp", now, "err", err).Errorf("test WithFields Errorf at %v", now)

	Info("test Info", "timestamp", now, "err", err)
	Infof("test Infof, timestamp=%v err=%v", now, err)
	Infoln("test Infoln", "timestamp", now, "err", err)

	Error("test Error", "timestamp", now, "err", err)
	Errorf("test Errorf, timestamp=%v err=%v", now, err)
	Errorln("test Errorln", "timestamp", now, "err", err)
}

func TestWithFieldsOddArgsDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		WithFields("timestamp", now, "dangling").Info("odd ctx length")
	})
}
