package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestPlainFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(PlainFormatter{})
	SetRoot(l)
	defer SetRoot(nil)

	Named("engine").WithField("turns", 3).Info("request complete")

	line := buf.String()
	if !strings.Contains(line, "[INFO]") || !strings.Contains(line, "[engine]") {
		t.Fatalf("line = %q", line)
	}
	if !strings.Contains(line, "request complete") || !strings.Contains(line, "turns=3") {
		t.Fatalf("line = %q", line)
	}
	// The component tag must not repeat in the field list.
	if strings.Contains(line, "component=") {
		t.Fatalf("line = %q", line)
	}
}

func TestNamedWithoutComponent(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(PlainFormatter{})
	SetRoot(l)
	defer SetRoot(nil)

	Named("").Warn("bare message")
	if strings.Contains(buf.String(), "[]") {
		t.Fatalf("line = %q", buf.String())
	}
}
