package main

import (
	"testing"
	"time"
)

func TestWriteTimeout(t *testing.T) {
	tests := []struct {
		name       string
		completion time.Duration
		want       time.Duration
	}{
		{"bounded completion", 60 * time.Second, 75 * time.Second},
		{"unbounded completion", 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := writeTimeout(tc.completion); got != tc.want {
				t.Errorf("writeTimeout(%s) = %s, want %s", tc.completion, got, tc.want)
			}
		})
	}
}
