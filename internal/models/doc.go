// Package models defines the core domain models for Groupcart.
//
// # Models
//
//   - Product: a catalog entry with its original price and discount tiers
//   - Group: a shared cart ("popular group") that unlocks group pricing at GroupSize members
//   - Participant: a shopper's membership record in a group (pending, approved, rejected)
//   - Payment: a successful charge recorded against a group for one user
//   - CartLine: one product/quantity pair in a shopper's own cart
//
// # Design Principles
//
// 1. **Owner is implicit**: the owner never appears in Participants but counts toward GroupSize
// 2. **IDs, not pointers**: relationships use ID strings to avoid circular references
// 3. **Decimal money**: every price and amount is a decimal.Decimal, never a float
// 4. **Behavior lives elsewhere**: mutation rules are enforced by the ledger package; these
//    types only answer questions about their own state
package models
