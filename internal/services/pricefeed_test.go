package services

import (
	"testing"
)

func TestDailyLimiting(t *testing.T) {
	client := NewFeedClient("test-key", "", 3)

	for i := 0; i < 3; i++ {
		if !client.checkRateLimit() {
			t.Fatalf("request %d blocked, want %d allowed", i+1, 3)
		}
	}
	if client.checkRateLimit() {
		t.Error("request over the daily limit should be blocked")
	}
	if remaining := client.RequestsRemaining(); remaining != 0 {
		t.Errorf("RequestsRemaining = %d, want 0", remaining)
	}
}

func TestRequestsRemaining(t *testing.T) {
	client := NewFeedClient("test-key", "", 10)

	if remaining := client.RequestsRemaining(); remaining != 10 {
		t.Errorf("RequestsRemaining before any request = %d, want 10", remaining)
	}

	client.checkRateLimit()
	client.checkRateLimit()

	if remaining := client.RequestsRemaining(); remaining != 8 {
		t.Errorf("RequestsRemaining after 2 requests = %d, want 8", remaining)
	}
}

func TestDefaultDailyLimit(t *testing.T) {
	client := NewFeedClient("test-key", "", 0)
	if client.DailyLimit() != 100 {
		t.Errorf("DailyLimit with zero config = %d, want the default 100", client.DailyLimit())
	}
}

func TestBestMarketPrice(t *testing.T) {
	tests := []struct {
		name string
		data []feedCardData
		want float64
	}{
		{
			name: "no data",
			data: nil,
			want: 0,
		},
		{
			name: "prefers NM normal",
			data: []feedCardData{{
				CardID: "sv5-123",
				Variants: []feedPrice{
					{Condition: "LP", Printing: "Normal", PriceUSD: 1.00},
					{Condition: "NM", Printing: "Normal", PriceUSD: 4.50},
					{Condition: "NM", Printing: "Holofoil", PriceUSD: 9.00},
				},
			}},
			want: 4.50,
		},
		{
			name: "falls back to cheapest positive",
			data: []feedCardData{{
				CardID: "sv5-123",
				Variants: []feedPrice{
					{Condition: "LP", Printing: "Holofoil", PriceUSD: 3.00},
					{Condition: "MP", Printing: "Normal", PriceUSD: 2.25},
					{Condition: "DMG", Printing: "Normal", PriceUSD: 0},
				},
			}},
			want: 2.25,
		},
		{
			name: "ignores non-positive prices",
			data: []feedCardData{{
				CardID: "sv5-123",
				Variants: []feedPrice{
					{Condition: "NM", Printing: "Normal", PriceUSD: 0},
					{Condition: "NM", Printing: "Normal", PriceUSD: -1},
				},
			}},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bestMarketPrice(tt.data); got != tt.want {
				t.Errorf("bestMarketPrice = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}
