// Command conflict_audit scans committed bookings for overlaps that should
// never exist. Run it after migrations or manual data fixes; a non-zero
// exit code means the invariant is broken.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

type booking struct {
	Kind      string    `db:"kind"`
	EntityID  string    `db:"entity_id"`
	RoomID    string    `db:"room_id"`
	Date      time.Time `db:"date"`
	StartTime string    `db:"start_time"`
	EndTime   string    `db:"end_time"`
}

const bookingsQuery = `
SELECT 'SESSION' AS kind, id AS entity_id, room_id, date, start_time, end_time
FROM dated_sessions
WHERE date BETWEEN $1 AND $2
UNION ALL
SELECT 'LOAN' AS kind, id AS entity_id, room_id, date, start_time, end_time
FROM room_loans
WHERE status = 'ACCEPTED' AND date BETWEEN $1 AND $2
ORDER BY room_id, date, start_time`

func main() {
	var (
		dsn     string
		fromRaw string
		toRaw   string
		timeout time.Duration
	)
	flag.StringVar(&dsn, "dsn", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&fromRaw, "from", "", "Start date (YYYY-MM-DD)")
	flag.StringVar(&toRaw, "to", "", "End date (YYYY-MM-DD)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Query timeout")
	flag.Parse()

	if dsn == "" {
		log.Fatal("provide -dsn or set DATABASE_URL")
	}
	from, err := timeslot.ParseDate(fromRaw)
	if err != nil {
		log.Fatalf("invalid -from: %v", err)
	}
	to, err := timeslot.ParseDate(toRaw)
	if err != nil {
		log.Fatalf("invalid -to: %v", err)
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var bookings []booking
	if err := db.SelectContext(ctx, &bookings, bookingsQuery, from, to); err != nil {
		log.Fatalf("load bookings: %v", err)
	}

	overlaps := findOverlaps(bookings)
	if len(overlaps) == 0 {
		fmt.Printf("scanned %d bookings between %s and %s: no overlaps\n", len(bookings), fromRaw, toRaw)
		return
	}
	for _, pair := range overlaps {
		fmt.Printf("OVERLAP room=%s date=%s: %s %s [%s-%s] vs %s %s [%s-%s]\n",
			pair[0].RoomID, timeslot.FormatDate(pair[0].Date),
			pair[0].Kind, pair[0].EntityID, pair[0].StartTime, pair[0].EndTime,
			pair[1].Kind, pair[1].EntityID, pair[1].StartTime, pair[1].EndTime,
		)
	}
	os.Exit(1)
}

func findOverlaps(bookings []booking) [][2]booking {
	type slot struct {
		booking
		start timeslot.Clock
		end   timeslot.Clock
	}
	groups := make(map[string][]slot)
	for _, b := range bookings {
		start, err := timeslot.ParseClock(b.StartTime)
		if err != nil {
			continue
		}
		end, err := timeslot.ParseClock(b.EndTime)
		if err != nil {
			continue
		}
		key := b.RoomID + "|" + timeslot.FormatDate(b.Date)
		groups[key] = append(groups[key], slot{booking: b, start: start, end: end})
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var overlaps [][2]booking
	for _, key := range keys {
		slots := groups[key]
		for i := 0; i < len(slots); i++ {
			for j := i + 1; j < len(slots); j++ {
				if timeslot.Overlaps(slots[i].start, slots[i].end, slots[j].start, slots[j].end) {
					overlaps = append(overlaps, [2]booking{slots[i].booking, slots[j].booking})
				}
			}
		}
	}
	return overlaps
}
