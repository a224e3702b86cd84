package utils

import (
	"net/netip"
	"strings"

	"webtracker/api/models"
)

// LookupGeo classifies an IP address into coarse metadata without any
// external lookup. Returns nil when the input is not a parseable address.
func LookupGeo(ip string) *models.GeoInfo {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return nil
	}

	version := "v6"
	if addr.Is4() || addr.Is4In6() {
		version = "v4"
	}

	scope := "public"
	switch {
	case addr.IsLoopback():
		scope = "loopback"
	case addr.IsPrivate():
		scope = "private"
	case addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast():
		scope = "linklocal"
	case addr.IsMulticast():
		scope = "multicast"
	case addr.IsUnspecified():
		scope = "unspecified"
	}

	return &models.GeoInfo{Scope: scope, Version: version}
}
