package db

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/vmc-listener/internal/monitoring"
	"github.com/banshee-data/vmc-listener/internal/network"
	"github.com/banshee-data/vmc-listener/internal/vmc"
)

const (
	defaultRecorderQueue = 4096
	defaultBatchSize     = 256
	defaultFlushInterval = 250 * time.Millisecond
)

type record struct {
	receivedAt time.Time
	source     string
	payload    []byte
	messages   int
	parseErr   string
	shapes     []vmc.BlendShape
}

// Recorder is a network.Tap that writes every datagram of one session to
// the database. Writes happen in batched transactions on a background
// goroutine; a full queue drops the datagram and counts it.
type Recorder struct {
	db            *DB
	sessionID     string
	tr            vmc.Translations
	stats         network.DropCounter
	queue         chan record
	batchSize     int
	flushInterval time.Duration
	done          chan struct{}
}

// NewRecorder returns a Recorder for sessionID. stats may be nil.
func NewRecorder(db *DB, sessionID string, tr vmc.Translations, stats network.DropCounter) *Recorder {
	return &Recorder{
		db:            db,
		sessionID:     sessionID,
		tr:            tr,
		stats:         stats,
		queue:         make(chan record, defaultRecorderQueue),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		done:          make(chan struct{}),
	}
}

// SessionID returns the session this recorder writes to.
func (r *Recorder) SessionID() string { return r.sessionID }

// Tap queues d for writing. The payload is copied.
func (r *Recorder) Tap(d network.Datagram) {
	rec := record{
		receivedAt: d.ReceivedAt,
		payload:    append([]byte(nil), d.Payload...),
		messages:   len(d.Messages),
	}
	if d.Source != nil {
		rec.source = d.Source.String()
	}
	if d.Err != nil {
		rec.parseErr = d.Err.Error()
	}
	for _, m := range d.Messages {
		if vmc.Classify(m.Address) != vmc.KindBlendValue {
			continue
		}
		ev, err := vmc.Decode(m, r.tr)
		if err != nil {
			continue
		}
		rec.shapes = append(rec.shapes, ev.(vmc.BlendShape))
	}

	select {
	case r.queue <- rec:
	default:
		if r.stats != nil {
			r.stats.AddDropped()
		}
	}
}

// Start runs the writer until ctx is done, then flushes whatever is queued
// and closes the Wait channel.
func (r *Recorder) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.flushInterval)
		defer ticker.Stop()

		batch := make([]record, 0, r.batchSize)
		flush := func() {
			if len(batch) == 0 {
				return
			}
			if err := r.write(batch); err != nil {
				monitoring.Logf("\033[93mFailed to record %d datagrams: %v\033[0m", len(batch), err)
			}
			batch = batch[:0]
		}

		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case rec := <-r.queue:
						batch = append(batch, rec)
						if len(batch) >= r.batchSize {
							flush()
						}
					default:
						flush()
						return
					}
				}
			case rec := <-r.queue:
				batch = append(batch, rec)
				if len(batch) >= r.batchSize {
					flush()
				}
			case <-ticker.C:
				flush()
			}
		}
	}()
}

// Wait blocks until the writer started by Start has exited.
func (r *Recorder) Wait() { <-r.done }

func (r *Recorder) write(batch []record) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	dgStmt, err := tx.Prepare(`
		INSERT INTO datagrams (session_id, received_at_ns, source, payload, message_count, parse_error)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''))`)
	if err != nil {
		return fmt.Errorf("prepare datagram insert: %w", err)
	}
	defer dgStmt.Close()

	bsStmt, err := tx.Prepare(`INSERT INTO blend_shapes (datagram_id, name, source_name, weight) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare blend shape insert: %w", err)
	}
	defer bsStmt.Close()

	for _, rec := range batch {
		res, err := dgStmt.Exec(r.sessionID, rec.receivedAt.UnixNano(), rec.source, rec.payload, rec.messages, rec.parseErr)
		if err != nil {
			return fmt.Errorf("insert datagram: %w", err)
		}
		if len(rec.shapes) == 0 {
			continue
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, s := range rec.shapes {
			if _, err := bsStmt.Exec(id, s.Name, s.Source, s.Weight); err != nil {
				return fmt.Errorf("insert blend shape: %w", err)
			}
		}
	}
	return tx.Commit()
}
