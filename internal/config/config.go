// Package config loads a peer's JSON configuration file and holds an
// advisory lock on it for the life of the process, the same
// config-file-doubles-as-lock-file pattern the reference peer used to
// stop two instances from sharing one identity by accident.
package config

import (
	"encoding/json"
	"io/ioutil"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/vknair/orbit-rmi/transport"
)

// Peer is one node's static configuration: its own identity and address,
// the address book for every peer it may dial, and the ambient knobs
// (worker count, snapshot path) an orbit.Space needs at construction.
type Peer struct {
	NodeID                transport.NodeID            `json:"node_id"`
	ListenAddr            string                      `json:"listen_addr"`
	PeerAddrs             map[transport.NodeID]string `json:"peer_addrs"`
	DialTimeout           time.Duration               `json:"dial_timeout"`
	Workers               int                         `json:"workers"`
	SnapshotFilePath      string                      `json:"snapshot_file_path"`
	SnapshotInterval      time.Duration               `json:"snapshot_interval"`
	// SnapshotFlushInterval governs which snapshot store backs
	// SnapshotFilePath: negative writes straight through to disk on every
	// snapshot, zero picks a default buffered-flush cadence, positive
	// sets that cadence explicitly. See cmd/orbitd's newSnapshotStore.
	SnapshotFlushInterval time.Duration               `json:"snapshot_flush_interval"`
	GracePeriod           time.Duration               `json:"grace_period"`
}

// Load reads and parses a peer configuration file and locks it against
// concurrent use by a second process. The caller must Unlock the
// returned lock when the peer shuts down.
func Load(path string) (Peer, *flock.Flock, error) {
	var cfg Peer

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, nil, errors.Wrapf(err, "config: reading %s", path)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, nil, errors.Wrapf(err, "config: parsing %s", path)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return cfg, nil, errors.Wrap(err, "config: acquiring lock")
	}
	if !locked {
		return cfg, nil, errors.New("config: file is locked, another instance may already be running")
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return cfg, fl, nil
}

// Directory converts the address book into a transport.Directory ready
// to hand to a TCPHub.
func (p Peer) Directory() *transport.Directory {
	dir := transport.NewDirectory()
	for id, addr := range p.PeerAddrs {
		dir.Set(id, addr)
	}
	return dir
}
