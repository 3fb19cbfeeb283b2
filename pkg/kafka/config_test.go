package _kafka

import "testing"

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default config is valid", func(c *Config) {}, false},
		{"missing brokers", func(c *Config) { c.Brokers = nil }, true},
		{"missing group", func(c *Config) { c.Group = "" }, true},
		{"missing topics", func(c *Config) { c.Topics = nil }, true},
		{"zero poll frequency", func(c *Config) { c.PollFrequency = 0 }, true},
		{"zero poll timeout", func(c *Config) { c.PollTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Topics = []string{"orders"}
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAutoOffsetRetrieval(t *testing.T) {
	r := AutoOffsetRetrieval()
	if r.Mode != RetrievalAuto {
		t.Errorf("Mode = %v, want RetrievalAuto", r.Mode)
	}
	if r.ManualFn != nil {
		t.Error("ManualFn should be nil for Auto retrieval")
	}
}

func TestManualOffsetRetrieval(t *testing.T) {
	called := false
	fn := func(m map[TopicPartition]struct{}) map[TopicPartition]Offset {
		called = true
		return nil
	}
	r := ManualOffsetRetrieval(fn)
	if r.Mode != RetrievalManual {
		t.Errorf("Mode = %v, want RetrievalManual", r.Mode)
	}
	r.ManualFn(nil)
	if !called {
		t.Error("ManualFn was not wired through")
	}
}

func TestOffsetMark(t *testing.T) {
	if got := Offset(41).Mark(); got != 42 {
		t.Errorf("Mark() = %d, want 42", got)
	}
}
