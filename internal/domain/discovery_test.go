package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTargetToken(t *testing.T) {
	base := common.HexToAddress("0x4200000000000000000000000000000000000006")
	other := common.HexToAddress("0x1111111111111111111111111111111111111111")

	tests := []struct {
		name   string
		event  DiscoveryEvent
		want   common.Address
		wantOK bool
	}{
		{
			name:   "base in slot 0",
			event:  DiscoveryEvent{Token0: base, Token1: other},
			want:   other,
			wantOK: true,
		},
		{
			name:   "base in slot 1",
			event:  DiscoveryEvent{Token0: other, Token1: base},
			want:   other,
			wantOK: true,
		},
		{
			name:   "base missing",
			event:  DiscoveryEvent{Token0: other, Token1: other},
			wantOK: false,
		},
		{
			name:   "base in both slots",
			event:  DiscoveryEvent{Token0: base, Token1: base},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.event.TargetToken(base)
			if ok != tt.wantOK {
				t.Fatalf("TargetToken ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("TargetToken = %s, want %s", got.Hex(), tt.want.Hex())
			}
		})
	}
}
