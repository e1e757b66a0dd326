package serial

import (
	"testing"
)

func TestWithParity(t *testing.T) {
	tests := []struct {
		name    string
		parity  Parity
		wantErr bool
	}{
		{"none", ParityNone, false},
		{"odd", ParityOdd, false},
		{"even", ParityEven, false},
		{"out of range", Parity(7), true},
		{"negative", Parity(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithParity(tt.parity)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithParity(%v) error = %v, wantErr %v", tt.parity, err, tt.wantErr)
			}
			if err == nil && config.Parity != tt.parity {
				t.Errorf("Parity = %v, want %v", config.Parity, tt.parity)
			}
		})
	}
}

func TestInitialLineOptions(t *testing.T) {
	config := DefaultConfig()
	if config.InitialRTS != nil || config.InitialDTR != nil {
		t.Fatal("Expected initial line states to be unset by default")
	}

	if err := WithInitialRTS(true)(&config); err != nil {
		t.Fatalf("WithInitialRTS failed: %v", err)
	}
	if err := WithInitialDTR(false)(&config); err != nil {
		t.Fatalf("WithInitialDTR failed: %v", err)
	}

	if config.InitialRTS == nil || !*config.InitialRTS {
		t.Errorf("Expected InitialRTS true, got %v", config.InitialRTS)
	}
	if config.InitialDTR == nil || *config.InitialDTR {
		t.Errorf("Expected InitialDTR false, got %v", config.InitialDTR)
	}
}

func TestWithSyncWrite(t *testing.T) {
	config := DefaultConfig()
	if config.WriteMode != WriteModeBuffered {
		t.Errorf("Expected default WriteModeBuffered, got %v", config.WriteMode)
	}
	if err := WithSyncWrite()(&config); err != nil {
		t.Fatalf("WithSyncWrite failed: %v", err)
	}
	if config.WriteMode != WriteModeSynced {
		t.Errorf("Expected WriteModeSynced, got %v", config.WriteMode)
	}
}
