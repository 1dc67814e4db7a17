package db

import (
	"database/sql"
	"time"
)

// StoredDatagram is one recorded payload.
type StoredDatagram struct {
	ID           int64
	ReceivedAt   time.Time
	Source       string
	Payload      []byte
	MessageCount int
	ParseError   string
}

// ForEachDatagram calls fn for every datagram of a session in receive
// order. Iteration stops at the first error returned by fn.
func (db *DB) ForEachDatagram(sessionID string, fn func(StoredDatagram) error) error {
	rows, err := db.Query(`
		SELECT datagram_id, received_at_ns, COALESCE(source, ''), payload, message_count, parse_error
		FROM datagrams
		WHERE session_id = ?
		ORDER BY received_at_ns, datagram_id`, sessionID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d        StoredDatagram
			received int64
			perr     sql.NullString
		)
		if err := rows.Scan(&d.ID, &received, &d.Source, &d.Payload, &d.MessageCount, &perr); err != nil {
			return err
		}
		d.ReceivedAt = time.Unix(0, received).UTC()
		d.ParseError = perr.String
		if err := fn(d); err != nil {
			return err
		}
	}
	return rows.Err()
}

// BlendShapePoint is one recorded weight.
type BlendShapePoint struct {
	Time   time.Time `json:"time"`
	Weight float32   `json:"weight"`
}

// BlendShapeSeries returns the recorded weights of one translated
// blend-shape name in receive order.
func (db *DB) BlendShapeSeries(sessionID, name string) ([]BlendShapePoint, error) {
	rows, err := db.Query(`
		SELECT d.received_at_ns, b.weight
		FROM blend_shapes b
		JOIN datagrams d ON d.datagram_id = b.datagram_id
		WHERE d.session_id = ? AND b.name = ?
		ORDER BY d.received_at_ns, b.datagram_id`, sessionID, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []BlendShapePoint
	for rows.Next() {
		var (
			ns int64
			w  float64
		)
		if err := rows.Scan(&ns, &w); err != nil {
			return nil, err
		}
		points = append(points, BlendShapePoint{Time: time.Unix(0, ns).UTC(), Weight: float32(w)})
	}
	return points, rows.Err()
}

// BlendShapeNames lists the distinct translated names seen in a session.
func (db *DB) BlendShapeNames(sessionID string) ([]string, error) {
	rows, err := db.Query(`
		SELECT DISTINCT b.name
		FROM blend_shapes b
		JOIN datagrams d ON d.datagram_id = b.datagram_id
		WHERE d.session_id = ?
		ORDER BY b.name`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
