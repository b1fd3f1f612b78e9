package exchange

import (
	"testing"
	"time"
)

func TestDetectSport(t *testing.T) {
	tests := []struct {
		name string
		raw  rawMarket
		want string
	}{
		{
			name: "nba-game-ticker",
			raw:  rawMarket{EventTicker: "KXNBAGAME-26FEB19DETNYK"},
			want: "NBA",
		},
		{
			name: "ncaa-football-before-nfl",
			raw:  rawMarket{SeriesTicker: "KXNCAAF"},
			want: "NCAA Football",
		},
		{
			name: "series-ticker-preferred-over-event",
			raw:  rawMarket{SeriesTicker: "KXEPL", EventTicker: "SOMETHING-ELSE"},
			want: "Soccer",
		},
		{
			name: "keyword-fallback",
			raw:  rawMarket{Title: "Will the Lakers win the championship?"},
			want: "NBA",
		},
		{
			name: "vs-pattern-fallback",
			raw:  rawMarket{Title: "Rivertown Rockets vs Harbor Hawks"},
			want: "Unknown Sport",
		},
		{
			name: "non-sport-keyword-blocks",
			raw:  rawMarket{Title: "Will the temperature in NYC exceed 90F?"},
			want: "",
		},
		{
			name: "economics-not-sport",
			raw:  rawMarket{EventTicker: "KXFED-26MAR"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectSport(&tt.raw); got != tt.want {
				t.Errorf("detectSport = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectEconomics(t *testing.T) {
	tests := []struct {
		name string
		raw  rawMarket
		want string
	}{
		{"fed-ticker", rawMarket{EventTicker: "KXFED-26MAR"}, "Fed Rate"},
		{"cpi-ticker", rawMarket{SeriesTicker: "KXCPIYOY"}, "CPI"},
		{"payrolls-nfp", rawMarket{EventTicker: "KXNFP-26FEB"}, "Payrolls"},
		{"keyword-fallback", rawMarket{Title: "Will nonfarm payrolls exceed 200k?"}, "Payrolls"},
		{"not-economics", rawMarket{Title: "Will it snow in Chicago?"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectEconomics(&tt.raw); got != tt.want {
				t.Errorf("detectEconomics = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractGameDate(t *testing.T) {
	tests := []struct {
		name   string
		ticker string
		want   time.Time
	}{
		{
			name:   "nba-game",
			ticker: "KXNBAGAME-26FEB19DETNYK",
			want:   time.Date(2026, time.February, 19, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "soccer-game",
			ticker: "KXEPLGAME-26MAR01CHELIV",
			want:   time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "no-date",
			ticker: "KXFED-HIGH",
			want:   time.Time{},
		},
		{
			name:   "invalid-day",
			ticker: "KXNBAGAME-26FEB31XXX",
			want:   time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractGameDate(tt.ticker); !got.Equal(tt.want) {
				t.Errorf("extractGameDate(%s) = %v, want %v", tt.ticker, got, tt.want)
			}
		})
	}
}

func TestIsParlay(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{"starts-with-yes", "yes New York,yes Los Angeles C,yes TCU", true},
		{"starts-with-no", "no Over 243.5", true},
		{"two-part-combo", "Over 243.5,yes UNLV, yes Duke", true},
		{"plain-question", "Will the Fed cut rates in March?", false},
		{"comma-but-not-combo", "Rain in Seattle, Portland, or Eugene?", false},
		{"yes-inside-word", "Yesterday's hero wins MVP?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isParlay(tt.title); got != tt.want {
				t.Errorf("isParlay(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestBestPriceCents(t *testing.T) {
	tests := []struct {
		name string
		raw  rawMarket
		want int
	}{
		{"last-price-wins", rawMarket{LastPrice: 42, YesBid: 40, YesAsk: 44}, 42},
		{"midpoint-when-no-last", rawMarket{YesBid: 40, YesAsk: 44}, 42},
		{"ask-only", rawMarket{YesAsk: 44}, 44},
		{"bid-only", rawMarket{YesBid: 40}, 40},
		{"no-price", rawMarket{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bestPriceCents(&tt.raw); got != tt.want {
				t.Errorf("bestPriceCents = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNormalizeMarket_SkipsDegeneratePrices(t *testing.T) {
	if m := normalizeMarket(&rawMarket{Ticker: "T", LastPrice: 0}, "", ""); m != nil {
		t.Error("expected nil for unpriced market")
	}
	if m := normalizeMarket(&rawMarket{Ticker: "T", LastPrice: 99}, "", ""); m != nil {
		t.Error("expected nil for 99c market")
	}
	if m := normalizeMarket(&rawMarket{Ticker: "T", LastPrice: 50}, "", ""); m == nil {
		t.Error("expected market at 50c")
	}
}

func TestNormalizeMarket_GameDateTightensClose(t *testing.T) {
	raw := rawMarket{
		Ticker:      "KXNBAGAME-26FEB19DETNYK-DET",
		EventTicker: "KXNBAGAME-26FEB19DETNYK",
		Title:       "Pistons beat Knicks?",
		LastPrice:   55,
		CloseTime:   "2026-03-05T00:00:00Z",
	}

	m := normalizeMarket(&raw, "NBA", "")
	if m == nil {
		t.Fatal("expected a market")
	}

	want := time.Date(2026, time.February, 20, 0, 0, 0, 0, time.UTC)
	if !m.CloseTime.Equal(want) {
		t.Errorf("close time = %v, want game day %v", m.CloseTime, want)
	}
	if m.Category != "sports" {
		t.Errorf("category = %q, want sports", m.Category)
	}
}
