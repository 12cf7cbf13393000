package config

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/blobsas/internal/common"
)

// ConnectionString holds the parts of a storage connection string the
// issuer needs.
type ConnectionString struct {
	AccountName  string
	AccountKey   string
	BlobEndpoint string
}

const defaultEndpointSuffix = "core.windows.net"

// ParseConnectionString parses "Key=Value;..." storage connection strings.
// Keys are case-insensitive. UseDevelopmentStorage=true yields the
// emulator account. Otherwise AccountName and AccountKey are required and
// the blob endpoint is BlobEndpoint when present, else built from
// DefaultEndpointsProtocol and EndpointSuffix.
func ParseConnectionString(s string) (ConnectionString, error) {
	parts := map[string]string{}
	for _, kv := range strings.Split(s, ";") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return ConnectionString{}, fmt.Errorf("%w: malformed segment %q", common.ErrInvalidConnectionString, kv)
		}
		parts[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	if strings.EqualFold(parts["usedevelopmentstorage"], "true") {
		return ConnectionString{
			AccountName:  DevAccountName,
			AccountKey:   DevAccountKey,
			BlobEndpoint: DevBlobEndpoint,
		}, nil
	}

	cs := ConnectionString{
		AccountName:  parts["accountname"],
		AccountKey:   parts["accountkey"],
		BlobEndpoint: strings.TrimSuffix(parts["blobendpoint"], "/"),
	}
	if cs.AccountName == "" || cs.AccountKey == "" {
		return ConnectionString{}, fmt.Errorf("%w: AccountName and AccountKey are required", common.ErrInvalidConnectionString)
	}

	if cs.BlobEndpoint == "" {
		protocol := parts["defaultendpointsprotocol"]
		if protocol == "" {
			protocol = "https"
		}
		if protocol != "http" && protocol != "https" {
			return ConnectionString{}, fmt.Errorf("%w: unsupported protocol %q", common.ErrInvalidConnectionString, protocol)
		}
		suffix := parts["endpointsuffix"]
		if suffix == "" {
			suffix = defaultEndpointSuffix
		}
		cs.BlobEndpoint = fmt.Sprintf("%s://%s.blob.%s", protocol, cs.AccountName, suffix)
	}
	return cs, nil
}
