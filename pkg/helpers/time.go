package helpers

import (
	"context"
	"strings"
	"time"

	mailtpl "github.com/Freshwater0/Celestial-SphereX/pkg/mailer/templates"
)

// timestamp fields rendered into email bodies, keyed by the source field
var localizedFields = map[string]string{
	"ExpiresAt": "ExpiresAtText",
	"TimeAt":    "Time",
}

var acceptedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -0700 MST",
	"2006-01-02 15:04:05 -0700",
}

// LocalizeTimesIfPossible rewrites the human readable timestamps of a queued
// job into the timezone of the requesting IP. Jobs without an IP, or whose IP
// does not resolve to a known zone, are left in UTC.
func LocalizeTimesIfPossible(ctx context.Context, resolver mailtpl.GeoResolver, data map[string]any) {
	ip, _ := data["IP"].(string)
	if strings.TrimSpace(ip) == "" {
		return
	}
	g, err := resolver.Lookup(ctx, ip)
	if err != nil || g.Timezone == "" {
		return
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return
	}
	for src, dst := range localizedFields {
		if t, ok := asTime(data[src]); ok {
			data[dst] = t.In(loc).Format(mailtpl.TimeLayout)
		}
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		for _, layout := range acceptedLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
