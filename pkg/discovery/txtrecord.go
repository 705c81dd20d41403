package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/libratbag/ratbag-go/pkg/version"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeDaemonTXT creates the TXT records of a daemon advertisement.
func EncodeDaemonTXT(info *DaemonInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyAPIVersion:  strconv.FormatUint(uint64(info.APIVersion), 10),
		TXTKeyProtocol:    info.Protocol,
		TXTKeyDeviceCount: strconv.Itoa(info.DeviceCount),
	}
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	return txt
}

// DecodeDaemonTXT parses the TXT records of a daemon advertisement.
func DecodeDaemonTXT(txt TXTRecordMap) (*DaemonInfo, error) {
	info := &DaemonInfo{}

	apiStr, ok := txt[TXTKeyAPIVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyAPIVersion)
	}
	api, err := strconv.ParseUint(apiStr, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyAPIVersion, apiStr)
	}
	info.APIVersion = uint32(api)

	info.Protocol, ok = txt[TXTKeyProtocol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyProtocol)
	}
	if _, err := version.Parse(info.Protocol); err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyProtocol, info.Protocol)
	}

	if dc, ok := txt[TXTKeyDeviceCount]; ok {
		n, err := strconv.Atoi(dc)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyDeviceCount, dc)
		}
		info.DeviceCount = n
	}
	info.Name = txt[TXTKeyName]

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// DefaultInstanceName returns "ratbagd@<host>", cut to the DNS label limit.
func DefaultInstanceName(host string) string {
	name := "ratbagd@" + host
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}
