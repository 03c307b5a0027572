// Package tilecache supplies decoded map tiles to a render loop without ever
// blocking it.
//
// A Provider answers Poll(id) immediately: with pixels when the tile is cached,
// otherwise by scheduling a fetch and reporting that the tile is not ready yet.
// The render loop simply polls again next frame.
//
// Pieces:
//   - tile: addressing (z/x/y), viewport coverage and tile sources.
//   - executor: where fetches run; a bounded goroutine pool on native targets, a
//     cooperative executor under js/wasm whose completions run inside Poll.
//   - fetch: one fetch attempt, from source through the HTTP cache to decode.
//   - httpcache + store: RFC 7234 response caching over ristretto, bigcache,
//     Redis or SQLite.
//
// Entry lifecycle:
//
//	Absent -> Pending -> Ready
//	                  -> Failed -> (cool-down elapsed) -> Pending
//
// Ready and Failed entries are evicted least-recently-used first. Pending
// entries are never evicted, so in-flight work always has somewhere to land.
package tilecache
