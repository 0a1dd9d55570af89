package httpclient

import (
	"testing"
	"time"
)

func TestWithTimeoutSharesTransport(t *testing.T) {
	c := WithTimeout(90 * time.Second)
	if c.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v", c.Timeout)
	}
	if c.Transport != Default().Transport {
		t.Error("WithTimeout should reuse the default transport's connection pool")
	}
}

func TestForStreamingHasNoTimeout(t *testing.T) {
	if ForStreaming().Timeout != 0 {
		t.Error("streaming client must not carry a whole-request timeout")
	}
}

func TestConfigureAPITimeout(t *testing.T) {
	Configure(Options{APITimeout: 5 * time.Second})
	defer Configure(Options{})
	if Default().Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", Default().Timeout)
	}
}
