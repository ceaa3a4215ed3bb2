// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts to and from its
// domain type with ToDomain and a ...FromDomain constructor.
//
// Structure:
//   - base.go: BaseModel shared by entity tables
//   - masterdata.go: products, warehouses, parties, accounts
//   - ledger.go: stock_levels, balances, journal_entries, journal_sequences,
//     ledger_transactions, ledger_transaction_items
package models
