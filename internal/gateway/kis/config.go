package kis

import "time"

// Config holds access settings for the KIS-style quote REST API.
type Config struct {
	BaseURL        string
	AppKey         string
	AppSecret      string
	HTTPTimeout    time.Duration
	RequestsPerSec float64
	Burst          int
}

func (c Config) withDefaults() Config {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if c.RequestsPerSec <= 0 {
		c.RequestsPerSec = 10
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
	return c
}
