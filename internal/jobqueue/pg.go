// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore PostgreSQL Job 存储，多实例部署共享登记表
type PGStore struct {
	pool *pgxpool.Pool
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS ingest_jobs (
  id              TEXT PRIMARY KEY,
  file_path       TEXT NOT NULL,
  collection_name TEXT NOT NULL,
  status          TEXT NOT NULL,
  created         TIMESTAMPTZ NOT NULL,
  updated         TIMESTAMPTZ,
  error           TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_ingest_jobs_status ON ingest_jobs (status, created);
`

// NewPGStore 连接 PostgreSQL 并确保登记表存在
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("连接 PostgreSQL failed: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("初始化 Job 表failed: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Put(ctx context.Context, job *Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_jobs (id, file_path, collection_name, status, created, updated, error)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET status = $4, updated = $6, error = $7`,
		job.ID, job.FilePath, job.CollectionName, string(job.Status), job.Created, job.Updated, job.Error,
	)
	if err != nil {
		return fmt.Errorf("写入 Job %s failed: %w", job.ID, err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT id, file_path, collection_name, status, created, updated, error
FROM ingest_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("查询 Job %s failed: %w", id, err)
	}
	return job, nil
}

func (s *PGStore) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, file_path, collection_name, status, created, updated, error FROM ingest_jobs`)
	if err != nil {
		return nil, fmt.Errorf("列出 Job failed: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("读取 Job 行failed: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM ingest_jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("删除 Job %s failed: %w", id, err)
	}
	return nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

// ClaimPending 原子认领一条最早的 pending 并置为 processing，
// SKIP LOCKED 保证多 Worker 不会抢到同一条；无待处理返回 nil
func (s *PGStore) ClaimPending(ctx context.Context) (*Job, error) {
	now := time.Now().UTC()
	job, err := scanJob(s.pool.QueryRow(ctx,
		`WITH sel AS (
  SELECT id FROM ingest_jobs WHERE status = 'pending'
  ORDER BY created LIMIT 1 FOR UPDATE SKIP LOCKED
)
UPDATE ingest_jobs SET status = 'processing', updated = $1
FROM sel WHERE ingest_jobs.id = sel.id
RETURNING ingest_jobs.id, ingest_jobs.file_path, ingest_jobs.collection_name,
          ingest_jobs.status, ingest_jobs.created, ingest_jobs.updated, ingest_jobs.error`,
		now,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("认领 pending Job failed: %w", err)
	}
	return job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var status string
	var updated *time.Time
	if err := row.Scan(&job.ID, &job.FilePath, &job.CollectionName, &status,
		&job.Created, &updated, &job.Error); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.Updated = updated
	return &job, nil
}
