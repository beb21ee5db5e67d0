package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Geo is the coarse location shown in security emails.
type Geo struct {
	City     string
	Region   string // state/province
	Country  string
	Timezone string
}

type GeoResolver interface {
	Lookup(ctx context.Context, ip string) (Geo, error)
}

var errNotRoutable = errors.New("geo: address is not publicly routable")

func FormatGeo(g Geo) string {
	var parts []string
	for _, s := range []string{g.City, g.Region, g.Country} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// IPAPIResolver looks addresses up on ip-api.com. Private and loopback
// addresses are never sent out.
type IPAPIResolver struct {
	Client *http.Client
}

func (r IPAPIResolver) Lookup(ctx context.Context, ip string) (Geo, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return Geo{}, fmt.Errorf("geo: invalid ip %q", ip)
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return Geo{}, errNotRoutable
	}
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}

	url := fmt.Sprintf("http://ip-api.com/json/%s?fields=status,message,country,regionName,city,timezone", parsed.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Geo{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Geo{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		Country    string `json:"country"`
		RegionName string `json:"regionName"`
		City       string `json:"city"`
		Timezone   string `json:"timezone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Geo{}, err
	}
	if !strings.EqualFold(body.Status, "success") {
		return Geo{}, fmt.Errorf("geo lookup failed: %s", body.Message)
	}
	return Geo{City: body.City, Region: body.RegionName, Country: body.Country, Timezone: body.Timezone}, nil
}

type cachedGeo struct {
	geo Geo
	at  time.Time
}

// CachingResolver remembers successful lookups for TTL so a burst of emails
// to one address costs one request.
type CachingResolver struct {
	Next GeoResolver
	TTL  time.Duration

	mu      sync.Mutex
	entries map[string]cachedGeo
	now     func() time.Time
}

func NewCachingResolver(next GeoResolver, ttl time.Duration) *CachingResolver {
	return &CachingResolver{Next: next, TTL: ttl, entries: map[string]cachedGeo{}, now: time.Now}
}

func (c *CachingResolver) Lookup(ctx context.Context, ip string) (Geo, error) {
	c.mu.Lock()
	e, ok := c.entries[ip]
	c.mu.Unlock()
	if ok && c.now().Sub(e.at) < c.TTL {
		return e.geo, nil
	}
	g, err := c.Next.Lookup(ctx, ip)
	if err != nil {
		return Geo{}, err
	}
	c.mu.Lock()
	c.entries[ip] = cachedGeo{geo: g, at: c.now()}
	c.mu.Unlock()
	return g, nil
}
