package constants

// Read-side queries for the payment audit trail (sqlx, bindvar "?" rebound per driver).
const (
	ListPaymentsByAssociation = `
SELECT id, user_id, association_id, kind, amount, fee_amount, fee_percent, turn_number, payment_date
FROM payments
WHERE association_id = ?
ORDER BY payment_date ASC, id ASC
LIMIT ?`

	ListPaymentsByUser = `
SELECT id, user_id, association_id, kind, amount, fee_amount, fee_percent, turn_number, payment_date
FROM payments
WHERE user_id = ?
ORDER BY payment_date DESC, id DESC
LIMIT ?`

	SumPaymentsByKind = `
SELECT kind, COALESCE(SUM(amount), 0) AS total
FROM payments
WHERE association_id = ?
GROUP BY kind`
)
