package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/cluster"
	"github.com/matzehuels/fpgapack/pkg/pctx"
	"github.com/matzehuels/fpgapack/pkg/router"
)

// Pack runs the cluster controller over l's loaded collaborators and opts'
// resolved config, returning every finalized cluster (spec §4.7).
//
// The intra-cluster router is a router.Fake: real routing against an
// lb_rr_graph remains an external collaborator this repo never implements
// (spec §1), so standalone runs drive the controller against a router
// that always reports success, matching spec §9's framing of the router
// as a delegated contract rather than packer-owned logic.
func Pack(ctx context.Context, l *loaded, opts Options) ([]*cluster.Cluster, *pctx.Context, error) {
	pc := pctx.New(l.netlist, l.molecules, l.archView, atom.NewLocations(), l.timingSource, router.NewFake(), opts.Config, opts.Logger)
	controller := cluster.New(pc)

	clusters, err := controller.Run(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("pack: %w", err)
	}
	return clusters, pc, nil
}

// Summarize reduces clusters to their serializable projection (spec §2
// ADDED "Result caching": only the finished ClusterSet is ever kept), by
// grouping pc's atom→cluster assignments back onto each cluster's ID.
func Summarize(clusters []*cluster.Cluster, pc *pctx.Context) []ClusterSummary {
	atomsByCluster := make(map[atom.ClusterID][]string)
	for _, a := range pc.Netlist.Atoms() {
		cid := pc.Locations.AtomCluster(a.ID)
		if cid == atom.NoCluster {
			continue
		}
		atomsByCluster[cid] = append(atomsByCluster[cid], a.Name)
	}

	out := make([]ClusterSummary, 0, len(clusters))
	for _, cl := range clusters {
		out = append(out, ClusterSummary{
			Name:      cl.Name,
			BlockType: cl.BlockType,
			Atoms:     atomsByCluster[cl.ID],
		})
	}
	return out
}
