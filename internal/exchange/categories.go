package exchange

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Series-ticker prefix tables for category detection. Checked
// longest-prefix-first to avoid false matches (KXNCAAF before KXNC).

var sportSeriesPrefixes = map[string]string{
	// College (longer prefixes, check before pro leagues)
	"KXNCAAMB":  "NCAA Basketball",
	"KXNCAAWB":  "NCAA Basketball",
	"KXNCAAF":   "NCAA Football",
	"KXNCAABB":  "NCAA Baseball",
	"KXNCAALAX": "Lacrosse",
	// Basketball
	"KXNBA":        "NBA",
	"KXWNBA":       "WNBA",
	"KXEUROLEAGUE": "Basketball",
	"KXFIBA":       "Basketball",
	// Football
	"KXNFL": "NFL",
	"KXSB":  "NFL",
	"KXAFC": "NFL",
	"KXNFC": "NFL",
	// Baseball
	"KXMLB": "MLB",
	// Hockey
	"KXNHL":   "NHL",
	"KXAHL":   "Hockey",
	"KXKHL":   "Hockey",
	"KXSHL":   "Hockey",
	"KXLIIGA": "Hockey",
	// Soccer
	"KXEPL":              "Soccer",
	"KXUCL":              "Soccer",
	"KXUEL":              "Soccer",
	"KXUECL":             "Soccer",
	"KXLALIGA":           "Soccer",
	"KXBUNDESLIGA":       "Soccer",
	"KXSERIEA":           "Soccer",
	"KXLIGUE1":           "Soccer",
	"KXMLS":              "Soccer",
	"KXNWSL":             "Soccer",
	"KXFACUP":            "Soccer",
	"KXEFLCUP":           "Soccer",
	"KXEFLCHAMPIONSHIP":  "Soccer",
	"KXEREDIVISIE":       "Soccer",
	"KXSCOTTISHPREM":     "Soccer",
	"KXLIGAMX":           "Soccer",
	"KXLIGAPORTUGAL":     "Soccer",
	"KXBRASILEIRAO":      "Soccer",
	"KXCOPADEL":          "Soccer",
	"KXCOPPAITALIA":      "Soccer",
	"KXDFBPOKAL":         "Soccer",
	"KXCLUBWORLDCUP":     "Soccer",
	"KXWORLDCUP":         "Soccer",
	"KXJLEAGUE":          "Soccer",
	"KXKLEAGUE":          "Soccer",
	"KXALEAGUE":          "Soccer",
	"KXSAUDIPL":          "Soccer",
	// Tennis
	"KXATP":       "Tennis",
	"KXWTA":       "Tennis",
	"KXGRANDSLAM": "Tennis",
	"KXDAVISCUP":  "Tennis",
	// Combat sports
	"KXUFC":    "UFC/MMA",
	"KXBOXING": "Boxing",
	// Motorsport
	"KXF1":     "F1",
	"KXNASCAR": "NASCAR",
	"KXINDY":   "IndyCar",
	// Cricket
	"KXIPL":     "Cricket",
	"KXT20":     "Cricket",
	"KXCRICKET": "Cricket",
	// Golf
	"KXPGA":     "Golf",
	"KXLIV":     "Golf",
	"KXMASTERS": "Golf",
	// Esports
	"KXCS2":      "Esports",
	"KXLOL":      "Esports",
	"KXVALORANT": "Esports",
	"KXDOTA2":    "Esports",
	"KXCOD":      "Esports",
	// Misc
	"KXCHESS":      "Chess",
	"KXFIDE":       "Chess",
	"KXRUGBY":      "Rugby",
	"KXSIXNATIONS": "Rugby",
	"KXNRL":        "Rugby",
	"KXDARTS":      "Darts",
	"KXWO":         "Olympics",
	"KXLAX":        "Lacrosse",
}

var economicsSeriesPrefixes = map[string]string{
	"KXGDP":     "GDP",
	"KXCPI":     "CPI",
	"KXFED":     "Fed Rate",
	"KXUNRATE":  "Unemployment",
	"KXPCE":     "PCE",
	"KXISM":     "ISM",
	"KXRETAIL":  "Retail Sales",
	"KXHOUSING": "Housing",
	"KXPAYROLL": "Payrolls",
	"KXNFP":     "Payrolls",
	"KXJOBLESS": "Jobless Claims",
	"KXJOB":     "Jobs Report",
}

// sortedSportPrefixes and sortedEconomicsPrefixes are ordered by
// descending length so longer prefixes win.
var (
	sortedSportPrefixes     = sortPrefixes(sportSeriesPrefixes)
	sortedEconomicsPrefixes = sortPrefixes(economicsSeriesPrefixes)
)

func sortPrefixes(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	return keys
}

// Keyword fallbacks when ticker prefixes don't match.
var sportKeywords = map[string][]string{
	"NBA":    {"nba", "basketball", "lakers", "celtics", "warriors"},
	"NFL":    {"nfl", "super bowl", "chiefs", "eagles", "49ers"},
	"MLB":    {"mlb", "baseball", "yankees", "dodgers"},
	"NHL":    {"nhl", "hockey", "bruins", "oilers"},
	"Soccer": {"soccer", "premier league", "la liga", "champions league", "world cup"},
	"Tennis": {"tennis", "atp", "wta", "wimbledon", "grand slam"},
	"UFC/MMA": {"ufc", "mma", "fight night"},
	"Golf":    {"golf", "pga", "masters"},
	"F1":      {"formula 1", "f1", "grand prix"},
	"Cricket": {"cricket", "ipl", "t20"},
}

var nonSportKeywords = []string{
	"temperature", "weather", "rainfall", "snowfall",
	"billboard", "grammy", "oscar", "emmy", "election",
	"stock", "nasdaq", "s&p", "crypto", "bitcoin", "ethereum",
}

var economicsKeywords = map[string][]string{
	"GDP":            {"real gdp", "gdp growth", "gdp increase"},
	"CPI":            {"consumer price index", "cpi rise", "cpi increase"},
	"Fed Rate":       {"federal funds rate", "fed rate", "fomc", "interest rate"},
	"Unemployment":   {"unemployment rate"},
	"Payrolls":       {"nonfarm payroll", "jobs report", "jobs added"},
	"Jobless Claims": {"jobless claims", "initial claims"},
	"Retail Sales":   {"retail sales"},
	"Housing":        {"housing starts", "new home sales"},
	"ISM":            {"ism manufacturing", "ism services"},
}

// seriesTicker extracts the series prefix: the series_ticker field when
// the venue still sends it, else the first dash-separated segment of
// the event ticker.
func seriesTicker(raw *rawMarket) string {
	if raw.SeriesTicker != "" {
		return strings.ToUpper(raw.SeriesTicker)
	}

	return strings.ToUpper(strings.SplitN(raw.EventTicker, "-", 2)[0])
}

// detectSport returns the sport type or "" for non-sport markets.
func detectSport(raw *rawMarket) string {
	series := seriesTicker(raw)
	if series != "" {
		for _, prefix := range sortedSportPrefixes {
			if strings.HasPrefix(series, prefix) {
				return sportSeriesPrefixes[prefix]
			}
		}
	}

	text := strings.ToLower(strings.Join([]string{
		raw.Title, raw.Subtitle, raw.YesSubTitle, raw.EventTicker,
	}, " "))

	for _, ns := range nonSportKeywords {
		if strings.Contains(text, ns) {
			return ""
		}
	}

	for sport, keywords := range sportKeywords {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return sport
			}
		}
	}

	// "X vs Y" is almost always sports.
	if strings.Contains(text, " vs ") || strings.Contains(text, " vs. ") {
		return "Unknown Sport"
	}

	return ""
}

// detectEconomics returns the indicator type or "" for other markets.
func detectEconomics(raw *rawMarket) string {
	series := seriesTicker(raw)
	for _, prefix := range sortedEconomicsPrefixes {
		if strings.HasPrefix(series, prefix) {
			return economicsSeriesPrefixes[prefix]
		}
	}

	text := strings.ToLower(strings.Join([]string{
		raw.Title, raw.Subtitle, raw.YesSubTitle,
	}, " "))

	for indicator, keywords := range economicsKeywords {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return indicator
			}
		}
	}

	return ""
}

// Game dates are embedded in event tickers as YYMMMDD, for example
// KXNBAGAME-26FEB19DETNYK.
var gameDateRe = regexp.MustCompile(`(\d{2})(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)(\d{2})`)

var monthNumbers = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// extractGameDate returns the UTC-midnight game date embedded in an
// event ticker, or a zero time when none is present.
func extractGameDate(eventTicker string) time.Time {
	match := gameDateRe.FindStringSubmatch(strings.ToUpper(eventTicker))
	if match == nil {
		return time.Time{}
	}

	year, _ := strconv.Atoi(match[1])
	day, _ := strconv.Atoi(match[3])

	date := time.Date(2000+year, monthNumbers[match[2]], day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day {
		// Normalized by time.Date, so the embedded day was invalid.
		return time.Time{}
	}

	return date
}

// isParlay detects parlay/combo markets by their garbled title pattern:
// "yes New York,yes Los Angeles C,yes TCU...". Any title starting with
// "yes " or "no " is a combo outcome, not a standalone question.
func isParlay(title string) bool {
	lower := strings.ToLower(strings.TrimSpace(title))
	if strings.HasPrefix(lower, "yes ") || strings.HasPrefix(lower, "no ") {
		return true
	}

	parts := strings.Split(title, ",")
	if len(parts) < 2 {
		return false
	}

	yesNoParts := 0
	for _, p := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(p))
		if strings.HasPrefix(trimmed, "yes ") || strings.HasPrefix(trimmed, "no ") {
			yesNoParts++
		}
	}

	return yesNoParts >= 2
}
