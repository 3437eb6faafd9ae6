// Package seed generates local-dev fixture data for the charges table, the
// same role the teacher's seed package played for its idempotency_keys
// table: a handful of realistic rows spanning every charge status so a
// freshly started Receiver has something to query against immediately.
package seed

import (
	"strconv"
	"strings"
)

// GenerateSQL builds INSERT statements covering PENDING, PAID and EXPIRED
// charges across a spread of ages and values.
func GenerateSQL() string {
	var b strings.Builder
	b.WriteString("BEGIN;\n")

	writeCharge := func(externalID string, value float64, status string, hoursAgo int, paid bool) {
		createdAt := "NOW() - INTERVAL '" + strconv.Itoa(hoursAgo) + " hours'"
		expiresAt := createdAt + " + INTERVAL '30 minutes'"
		paidAt := "NULL"
		if paid {
			paidAt = createdAt + " + INTERVAL '45 seconds'"
		}

		b.WriteString("INSERT INTO charges (external_id, value, status, created_at, expires_at, paid_at) VALUES (")
		b.WriteString("'" + externalID + "', ")
		b.WriteString(strconv.FormatFloat(value, 'f', 2, 64) + ", ")
		b.WriteString("'" + status + "', ")
		b.WriteString(createdAt + ", ")
		b.WriteString(expiresAt + ", ")
		b.WriteString(paidAt)
		b.WriteString(") ON CONFLICT (external_id) DO NOTHING;\n")
	}

	// 20 confirmed payments, created 1 to 20 hours ago.
	for i := 0; i < 20; i++ {
		externalID := "ext_seed_paid_" + strconv.Itoa(i)
		value := 10.00 + float64(i*137%4950)
		writeCharge(externalID, value, "PAID", 1+(i%48), true)
	}

	// 5 charges that were never paid in time.
	for i := 0; i < 5; i++ {
		externalID := "ext_seed_expired_" + strconv.Itoa(i)
		writeCharge(externalID, 99.90+float64(i*10), "EXPIRED", 2+i, false)
	}

	// 3 charges still within their payment window.
	for i := 0; i < 3; i++ {
		externalID := "ext_seed_pending_" + strconv.Itoa(i)
		writeCharge(externalID, 50.00+float64(i*25), "PENDING", 0, false)
	}

	b.WriteString("COMMIT;\n")
	return b.String()
}
