package rates

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ParseSample extracts a funding sample from a heterogeneous venue payload.
// Venues disagree on field names and timestamp units, so every lookup is
// tolerant and the first matching key wins.
func ParseSample(exchange, symbol string, payload any) (Sample, bool) {
	data, ok := toMap(payload)
	if !ok {
		return Sample{}, false
	}
	name := symbol
	if name == "" {
		name = stringFromMap(data, "coin", "asset", "symbol")
	}
	if name == "" {
		return Sample{}, false
	}
	sample := Sample{Exchange: exchange, Symbol: name, Confidence: 1}
	hasRate := false
	if v, ok := floatFromMapOK(data, "fundingRate", "funding", "rate", "predictedFunding"); ok {
		sample.Rate = v
		hasRate = true
	}
	if ts, ok := timeFromMap(data, "nextFundingTime", "nextFundingTimeMs", "fundingTime", "nextFunding", "time", "timestamp"); ok {
		sample.NextFunding = ts
	}
	if hours := floatFromMap(data, "fundingIntervalHours", "fundingIntervalHrs", "intervalHours", "intervalHrs"); hours > 0 {
		sample.Interval = time.Duration(hours * float64(time.Hour))
	}
	if conf, ok := floatFromMapOK(data, "confidence", "conf"); ok {
		sample.Confidence = clampConfidence(conf)
	}
	if !hasRate {
		return Sample{}, false
	}
	return sample, true
}

// ParseQuote extracts a spot/mark price quote from a venue payload.
func ParseQuote(source string, payload any) (Quote, bool) {
	switch data := payload.(type) {
	case map[string]any:
		quote := Quote{Source: source, Confidence: 1}
		price, ok := floatFromMapOK(data, "price", "markPx", "markPrice", "mid", "px")
		if !ok || price <= 0 {
			return Quote{}, false
		}
		quote.Price = price
		if ts, ok := timeFromMap(data, "time", "timestamp", "ts"); ok {
			quote.Timestamp = ts
		} else {
			quote.Timestamp = time.Now().UTC()
		}
		if conf, ok := floatFromMapOK(data, "confidence", "conf"); ok {
			quote.Confidence = clampConfidence(conf)
		}
		return quote, true
	default:
		if price, ok := floatFromAny(payload); ok && price > 0 {
			return Quote{Price: price, Timestamp: time.Now().UTC(), Source: source, Confidence: 1}, true
		}
		return Quote{}, false
	}
}

func toMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func stringFromMap(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s := stringFromAny(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func floatFromMap(m map[string]any, keys ...string) float64 {
	f, _ := floatFromMapOK(m, keys...)
	return f
}

func floatFromMapOK(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if f, ok := floatFromAny(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func floatFromAny(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func timeFromMap(m map[string]any, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if ts, ok := timeFromAny(v); ok {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

func timeFromAny(v any) (time.Time, bool) {
	f, ok := floatFromAny(v)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	ts := int64(f)
	switch {
	case ts > 1e15:
		return time.Unix(0, ts).UTC(), true
	case ts > 1e12:
		return time.UnixMilli(ts).UTC(), true
	default:
		return time.Unix(ts, 0).UTC(), true
	}
}
