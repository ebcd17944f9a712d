package services

import (
	"context"
	"log"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/db"
)

// withConn acquires one connection for the duration of fn and releases it on every path.
func withConn(ctx context.Context, p *db.Provider, fn func(conn *db.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Printf("WARNING: failed to release database connection: %v", cerr)
		}
	}()
	return fn(conn)
}
