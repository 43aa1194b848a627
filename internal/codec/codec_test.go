package codec

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"ipnetlab/internal/domain"
)

func sampleSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		ID:        7,
		Topology:  "lab",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Pools: []domain.PoolRecord{
			{Family: "ipv4", Base: "10.0.0.0/24", MaxPrefixLen: 24, Free: []string{"10.0.0.8/29"}},
		},
		Domains: []domain.DomainRecord{
			{ID: 0, Members: []string{"r1:lo"}, SubnetV4: "10.0.0.4/30"},
			{ID: 1, Members: []string{"r1:r1-eth0", "h1:h1-eth0"}, SubnetV4: "10.0.0.0/30"},
		},
		Interfaces: []domain.InterfaceRecord{
			{Node: "h1", Kind: domain.NodeKindHost, Interface: "h1-eth0", Peer: "r1:r1-eth0", DomainID: 1, IPv4: []string{"10.0.0.2/30"}},
			{Node: "r1", Kind: domain.NodeKindRouter, Interface: "lo", DomainID: 0, IPv4: []string{"10.0.0.5/30"}},
			{Node: "r1", Kind: domain.NodeKindRouter, Interface: "r1-eth0", Peer: "h1:h1-eth0", DomainID: 1, IPv4: []string{"10.0.0.1/30"}},
		},
		Registry: []domain.RegistryEntry{
			{Address: "10.0.0.1", Node: "r1"},
			{Address: "10.0.0.1/30", Node: "r1"},
		},
		RouterIDs: map[string]string{"r1": "10.0.0.1"},
	}
}

func TestExporterFor(t *testing.T) {
	for _, format := range []string{"json", "yaml", "yml", "topodb", "xlsx"} {
		e, err := ExporterFor(format)
		if err != nil {
			t.Errorf("ExporterFor(%q) error: %v", format, err)
			continue
		}
		if e.ContentType() == "" {
			t.Errorf("%s exporter has no content type", format)
		}
	}

	if _, err := ExporterFor("csv"); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := ImporterFor("xlsx"); err == nil {
		t.Error("expected xlsx not to be importable")
	}
	if got := Formats(); len(got) != 4 || got[0] != "json" {
		t.Errorf("Formats() = %v", got)
	}
}

func TestJSONCodec(t *testing.T) {
	c := NewJSONCodec()
	var buf bytes.Buffer
	if err := c.Export(sampleSnapshot(), &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	snap, err := c.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if node, ok := snap.Lookup("10.0.0.1"); !ok || node != "r1" {
		t.Errorf("Lookup(10.0.0.1) = %s, %v", node, ok)
	}
	if snap.Domains[1].SubnetV4 != "10.0.0.0/30" {
		t.Errorf("domain 1 subnet = %s", snap.Domains[1].SubnetV4)
	}
}

func TestYAMLCodec(t *testing.T) {
	c := NewYAMLCodec()
	var buf bytes.Buffer
	if err := c.Export(sampleSnapshot(), &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("subnet_v4: 10.0.0.0/30")) {
		t.Errorf("unexpected YAML:\n%s", buf.String())
	}

	snap, err := c.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !snap.CreatedAt.Equal(sampleSnapshot().CreatedAt) {
		t.Errorf("CreatedAt = %s", snap.CreatedAt)
	}
	if snap.RouterIDs["r1"] != "10.0.0.1" {
		t.Errorf("router id = %s", snap.RouterIDs["r1"])
	}
}

func TestTopologyDB(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTopologyDBCodec().Export(sampleSnapshot(), &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	var db map[string]map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &db); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	r1, ok := db["r1"]
	if !ok {
		t.Fatal("expected r1 in the database")
	}
	if string(r1["type"]) != `"router"` || string(r1["routerid"]) != `"10.0.0.1"` {
		t.Errorf("r1 = %v", r1)
	}
	if _, ok := r1["lo"]; ok {
		t.Error("loopback should not be listed")
	}

	var itf TopoDBInterface
	if err := json.Unmarshal(r1["h1"], &itf); err != nil {
		t.Fatalf("r1 should have an entry for its neighbour h1: %v", err)
	}
	if itf.Name != "r1-eth0" || itf.IP != "10.0.0.1/30" {
		t.Errorf("r1 -> h1 = %+v", itf)
	}
	if _, ok := db["h1"]["routerid"]; ok {
		t.Error("hosts have no router id")
	}
}

func TestXLSXCodec(t *testing.T) {
	var buf bytes.Buffer
	if err := NewXLSXCodec().Export(sampleSnapshot(), &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetInterfaces)
	if err != nil {
		t.Fatalf("GetRows() error: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d interface rows, want 4", len(rows))
	}
	if rows[1][0] != "h1" || rows[1][5] != "10.0.0.2/30" {
		t.Errorf("first interface row = %v", rows[1])
	}

	rows, err = f.GetRows(SheetRouters)
	if err != nil {
		t.Fatalf("GetRows() error: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "10.0.0.1" {
		t.Errorf("router rows = %v", rows)
	}
}
