package codec

import (
	"fmt"
	"io"
	"strings"

	"ipnetlab/internal/domain"

	"github.com/xuri/excelize/v2"
)

// XLSXCodec exports a snapshot as a spreadsheet with one sheet per table
type XLSXCodec struct{}

// NewXLSXCodec creates a new XLSX codec
func NewXLSXCodec() *XLSXCodec {
	return &XLSXCodec{}
}

// Format returns the codec format identifier
func (c *XLSXCodec) Format() string {
	return "xlsx"
}

// ContentType returns the MIME type of the output
func (c *XLSXCodec) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Sheet names of the workbook
const (
	SheetDomains    = "Domains"
	SheetInterfaces = "Interfaces"
	SheetPools      = "Pools"
	SheetRouters    = "Routers"
)

// Export writes the workbook
func (c *XLSXCodec) Export(snap *domain.Snapshot, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetDomains); err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	for _, sheet := range []string{SheetInterfaces, SheetPools, SheetRouters} {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}

	sheets := map[string][][]interface{}{
		SheetDomains:    domainRows(snap),
		SheetInterfaces: interfaceRows(snap),
		SheetPools:      poolRows(snap),
		SheetRouters:    routerRows(snap),
	}
	for sheet, rows := range sheets {
		if err := writeSheetRows(f, sheet, rows); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", sheet, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write XLSX: %w", err)
	}
	return nil
}

func domainRows(snap *domain.Snapshot) [][]interface{} {
	rows := [][]interface{}{{"ID", "IPv4 subnet", "IPv6 subnet", "Pinned", "Members"}}
	for _, d := range snap.Domains {
		var pinned []string
		if d.FixedV4 {
			pinned = append(pinned, "ipv4")
		}
		if d.FixedV6 {
			pinned = append(pinned, "ipv6")
		}
		rows = append(rows, []interface{}{d.ID, d.SubnetV4, d.SubnetV6, strings.Join(pinned, ","), strings.Join(d.Members, " ")})
	}
	return rows
}

func interfaceRows(snap *domain.Snapshot) [][]interface{} {
	rows := [][]interface{}{{"Node", "Kind", "Interface", "Peer", "Domain", "IPv4", "IPv6"}}
	for _, r := range snap.Interfaces {
		rows = append(rows, []interface{}{r.Node, string(r.Kind), r.Interface, r.Peer, r.DomainID,
			strings.Join(r.IPv4, " "), strings.Join(r.IPv6, " ")})
	}
	return rows
}

func poolRows(snap *domain.Snapshot) [][]interface{} {
	rows := [][]interface{}{{"Family", "Base", "Max prefix length", "Free blocks"}}
	for _, p := range snap.Pools {
		rows = append(rows, []interface{}{p.Family, p.Base, p.MaxPrefixLen, strings.Join(p.Free, " ")})
	}
	return rows
}

func routerRows(snap *domain.Snapshot) [][]interface{} {
	rows := [][]interface{}{{"Router", "Router ID"}}
	for _, name := range snap.NodeNames() {
		if id, ok := snap.RouterIDs[name]; ok {
			rows = append(rows, []interface{}{name, id})
		}
	}
	return rows
}

func writeSheetRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
