package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ipnetlab/internal/domain"
)

// TopologyDBCodec exports the per-node interface database consumed by lab
// scripts: every node maps to its kind, its interface names and one entry
// per interface, also reachable under the name of the node at the other end
// of the link.
type TopologyDBCodec struct{}

// NewTopologyDBCodec creates a new topology database codec
func NewTopologyDBCodec() *TopologyDBCodec {
	return &TopologyDBCodec{}
}

// Format returns the codec format identifier
func (c *TopologyDBCodec) Format() string {
	return "topodb"
}

// ContentType returns the MIME type of the output
func (c *TopologyDBCodec) ContentType() string {
	return "application/json"
}

// TopoDBInterface describes one interface in the topology database
type TopoDBInterface struct {
	Name string   `json:"name"`
	IP   string   `json:"ip"`
	IPs  []string `json:"ips"`
}

// TopologyDB builds the database of a snapshot. Router loopbacks are left
// out.
func TopologyDB(snap *domain.Snapshot) map[string]map[string]any {
	db := make(map[string]map[string]any)
	for _, name := range snap.NodeNames() {
		props := make(map[string]any)
		var names []string
		for _, rec := range snap.InterfacesOf(name) {
			if rec.Kind == domain.NodeKindRouter && rec.Interface == domain.LoopbackName {
				continue
			}
			props["type"] = string(rec.Kind)

			itf := TopoDBInterface{
				Name: rec.Interface,
				IPs:  append(append([]string{}, rec.IPv4...), rec.IPv6...),
			}
			if len(itf.IPs) > 0 {
				itf.IP = itf.IPs[0]
			}
			names = append(names, rec.Interface)
			props[rec.Interface] = itf
			if peer, _, ok := strings.Cut(rec.Peer, ":"); ok {
				props[peer] = itf
			}
		}
		if len(names) == 0 {
			continue
		}
		if id, ok := snap.RouterIDs[name]; ok {
			props["routerid"] = id
		}
		props["interfaces"] = names
		db[name] = props
	}
	return db
}

// Export writes the topology database as JSON
func (c *TopologyDBCodec) Export(snap *domain.Snapshot, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(TopologyDB(snap)); err != nil {
		return fmt.Errorf("failed to encode topology database: %w", err)
	}

	return nil
}
