// Package pkg collects fpgapack's packer libraries.
//
// # Overview
//
// fpgapack clusters a technology-mapped atom netlist into
// architecture-sized logic blocks, following VPR's AAPack clustering
// algorithm: repeatedly seed a new cluster from the highest-priority
// unclustered atom, grow it by trying candidate atoms in gain order
// subject to capacity/timing/pin-usage constraints, and finalize it once
// no further atom fits.
//
// # Core packer
//
//   - [atom] - technology-mapped netlist: atoms, molecules, pins, nets.
//   - [arch] - architecture view: expanded pb-graph, pin classes,
//     hostability index.
//   - [pctx] - shared packer configuration and RNG context.
//   - [gain] - multi-term gain function ranking candidate atoms.
//   - [seed] - seed-atom selection policies.
//   - [pb] - pb-tree instantiation and per-cluster pb-stats.
//   - [placement] - cluster-placement capacity/timing bookkeeping.
//   - [trypack] - speculative, reversible try_pack_molecule recursion.
//   - [cluster] - the cluster controller driving seed → grow → finalize.
//   - [router] - external intra-cluster routing contract.
//   - [timing] - external timing-analyzer contract.
//   - [perr] - structured packer errors.
//
// # Ambient stack
//
//   - [netlistio] - file readers for the packer's external
//     interfaces (netlist, architecture, placement, timing JSON).
//   - [observability] - hook registry for run/cluster/cache/HTTP events.
//   - [rescache] - result cache (file, Redis, null backends).
//   - [runstore] - run-history store (JSON-lines, MongoDB backends).
//   - [pipeline] - read → pack → summarize orchestration shared by the
//     CLI and the HTTP API.
//   - [buildinfo] - build-time version metadata.
package pkg
