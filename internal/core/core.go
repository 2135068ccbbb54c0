/*
Core implements the single-threaded order and position engine.

# Module
  - order gateway: sends orders, defers sends for a symbol while one of its cancels is in flight
  - order ledger: live orders, cumulative fills and pending-cancel flags
  - position ledger: today/yesterday buckets, pnl and account cash
  - risk engine: checks each order against limits before it is sent
  - bar aggregator: builds fixed-interval bars from ticks

# Source
 1. venue responses from the transport
 2. ticks from the market data feed, or from the paper session

# Produce
  - orders and cancels to the transport
  - journal entries and metrics
*/
package core
