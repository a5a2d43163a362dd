package service

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"

	ua "github.com/mileusna/useragent"
)

// identifierHashLen truncates the hex digest; enough entropy to match on,
// short enough to be useless for reversal.
const identifierHashLen = 16

const minUserAgentLength = 10

var botAgentMarkers = []string{
	"bot", "crawler", "spider", "scraper",
	"curl", "wget", "python", "java",
	"headless", "phantom",
}

var browserMarkers = []string{
	"mozilla", "chrome", "safari", "firefox", "edge", "opera", "msie",
}

// HashIdentifier returns the truncated one-way digest of a raw session id
// or device fingerprint. Raw values must never be persisted.
func HashIdentifier(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:identifierHashLen]
}

// AnonymizeIP zeroes the last IPv4 octet, or truncates an IPv6 address to
// its first four groups. Unparseable input is dropped entirely.
func AnonymizeIP(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		v4[3] = 0
		return v4.String()
	}
	v6 := ip.To16()
	for i := 8; i < 16; i++ {
		v6[i] = 0
	}
	return v6.String()
}

// IsBotUserAgent flags absent or implausibly short agents, known bot
// markers, and agents carrying no common browser signature.
func IsBotUserAgent(userAgent string) bool {
	agent := strings.ToLower(strings.TrimSpace(userAgent))
	if len(agent) < minUserAgentLength {
		return true
	}
	for _, marker := range botAgentMarkers {
		if strings.Contains(agent, marker) {
			return true
		}
	}
	for _, marker := range browserMarkers {
		if strings.Contains(agent, marker) {
			return false
		}
	}
	return true
}

// IsInternalIP reports private, loopback and link-local addresses.
func IsInternalIP(raw string) bool {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}

type agentInfo struct {
	Device  string
	OS      string
	Browser string
}

// parseUserAgent is best-effort; an unrecognized agent yields empty fields.
func parseUserAgent(userAgent string) agentInfo {
	if strings.TrimSpace(userAgent) == "" {
		return agentInfo{}
	}
	parsed := ua.Parse(userAgent)

	device := ""
	switch {
	case parsed.Mobile:
		device = "mobile"
	case parsed.Tablet:
		device = "tablet"
	case parsed.Desktop:
		device = "desktop"
	}

	return agentInfo{
		Device:  device,
		OS:      parsed.OS,
		Browser: parsed.Name,
	}
}
