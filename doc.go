// Package dca provides the ledger and valuation engine behind the stacker tool, a
// local-first tracker for Bitcoin dollar-cost-averaging.
//
// The core functionalities include:
//   - Entry and Ledger: recording purchases (amount, price, time) in an ordered
//     collection with unique ids, persisted as a whole after every mutation.
//   - Valuation: stateless functions computing cost basis, average price, current
//     value, profit/loss, sats conversions, price allocation buckets and the
//     progress toward a stacking goal.
//   - Import/Export: encoding and decoding the ledger as JSON or CSV, with lenient
//     decoders able to read older or partially corrupt files.
//   - Preferences: the stacking goal, display currency and privacy mode.
//
// Importing replaces the whole ledger by default. This is destructive on purpose,
// to restore a backup as is; use ImportMerge to keep existing entries.
package dca
