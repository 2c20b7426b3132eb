//go:build windows

package netspeed

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// IfTable reads 64-bit octet counters for every adapter through
// GetAdaptersAddresses and GetIfEntry2Ex.
type IfTable struct{}

// NewSource returns the Windows counter source
func NewSource() *IfTable { return &IfTable{} }

func (IfTable) Counters() ([]Counters, error) {
	adapters, err := adapterAddresses()
	if err != nil {
		return nil, err
	}

	var out []Counters
	for aa := adapters; aa != nil; aa = aa.Next {
		if aa.IfType == windows.IF_TYPE_SOFTWARE_LOOPBACK {
			continue
		}
		row := windows.MibIfRow2{InterfaceLuid: aa.Luid}
		if err := windows.GetIfEntry2Ex(windows.MibIfEntryNormal, &row); err != nil {
			continue
		}
		out = append(out, Counters{
			Name:        windows.UTF16PtrToString(aa.FriendlyName),
			Description: windows.UTF16PtrToString(aa.Description),
			BytesSent:   row.OutOctets,
			BytesRecv:   row.InOctets,
			Up:          aa.OperStatus == windows.IfOperStatusUp,
		})
	}
	return out, nil
}

// adapterAddresses grows the buffer until the adapter list fits.
func adapterAddresses() (*windows.IpAdapterAddresses, error) {
	size := uint32(15 * 1024)
	for range 4 {
		buf := make([]byte, size)
		aa := (*windows.IpAdapterAddresses)(unsafe.Pointer(&buf[0]))
		err := windows.GetAdaptersAddresses(windows.AF_UNSPEC, windows.GAA_FLAG_INCLUDE_PREFIX, 0, aa, &size)
		if err == nil {
			return aa, nil
		}
		if !errors.Is(err, windows.ERROR_BUFFER_OVERFLOW) {
			return nil, fmt.Errorf("GetAdaptersAddresses: %w", err)
		}
	}
	return nil, fmt.Errorf("GetAdaptersAddresses: buffer keeps growing")
}
