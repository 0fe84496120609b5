//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (user-agent fingerprint, IP and geolocation, preferred locale, and
//  timestamp).  These structs are inert: they hold no database handles or
//  large buffers, so they are safe to log.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the parsed user-agent properties written to request logs.
type UA struct {
	Browser     string // "Chrome", "Firefox", "Safari", etc.
	Version     string // "124.0.6367"
	OS          string // "MacOSX", "Windows", "Android", "iOS", etc.
	Device      string // "Desktop", "Mobile", "Tablet", "Other"
	IsBot       bool
	PrimaryLang string // First tag from Accept-Language ("en", "vi", ...)
}

// Geo holds IP-based geolocation hints.  These are best-effort and may be
// empty if the DB has no match or no DB is loaded.
type Geo struct {
	IP         net.IP
	CountryISO string
	City       string
}

// RequestInfo is the container placed in the request context.
type RequestInfo struct {
	UA        UA
	Geo       Geo
	Locale    string // ?lang= override, else PrimaryLang
	Timestamp time.Time
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// geoReader is a process-wide MaxMind handle.  It is safe for concurrent
// reads, which is all we ever perform.
var geoReader *geoip2.Reader

// InitGeo opens the GeoLite2-City database.  Without it, Geo carries only
// the client IP.
func InitGeo(dbPath string) error {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	geoReader = r
	return nil
}

// CloseGeo releases the reader opened by InitGeo.
func CloseGeo() {
	if geoReader != nil {
		_ = geoReader.Close()
		geoReader = nil
	}
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer stored by Enrich, or nil if the
// middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// LocaleFrom returns the preferred locale recorded by Enrich, or "".
func LocaleFrom(ctx context.Context) string {
	if info := FromContext(ctx); info != nil {
		return info.Locale
	}
	return ""
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// parseUA converts a raw header into our UA struct using uasurfer.
func parseUA(uaHeader, acceptLang string) UA {
	u := uasurfer.Parse(uaHeader)

	out := UA{
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:     versionString(u.Browser.Version),
		OS:          strings.TrimPrefix(u.OS.Name.String(), "OS"),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}
	switch u.DeviceType {
	case uasurfer.DeviceComputer:
		out.Device = "Desktop"
	case uasurfer.DeviceTablet:
		out.Device = "Tablet"
	case uasurfer.DevicePhone, uasurfer.DeviceWearable:
		out.Device = "Mobile"
	default:
		out.Device = "Other"
	}
	return out
}

// versionString renders 17.0.0 as "17", 17.3.0 as "17.3", and 17.3.1 as
// "17.3.1".
func versionString(v uasurfer.Version) string {
	switch {
	case v.Major == 0 && v.Minor == 0 && v.Patch == 0:
		return ""
	case v.Patch != 0:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	case v.Minor != 0:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	default:
		return strconv.Itoa(int(v.Major))
	}
}

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag := strings.TrimSpace(strings.Split(al, ",")[0])
	if i := strings.Index(tag, ";"); i != -1 {
		tag = tag[:i]
	}
	if tag == "*" {
		return ""
	}
	return strings.ToLower(tag)
}

// lookupGeo returns best-effort Geo data using the global reader.
func lookupGeo(ip net.IP) Geo {
	if geoReader == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := geoReader.City(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{
		IP:         ip,
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names["en"],
	}
}
