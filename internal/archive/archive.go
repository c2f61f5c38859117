// Package archive 把所有镜像过的条目永久归档到 SQLite。
// 历史文件被 max_items 截断后，被挤出的条目仍可在归档中查到。
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iabetor/feedmirror/internal/feed"
	"github.com/iabetor/feedmirror/internal/logger"
)

// Archive 镜像归档数据库。
type Archive struct {
	db   *sql.DB
	path string
}

// Open 打开或创建归档数据库并完成建表。
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("创建归档目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开归档数据库失败: %w", err)
	}

	// WAL 模式避免写入时阻塞读取
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}

	a := &Archive{db: db, path: path}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debugf("[archive] 归档数据库已打开: %s", path)
	return a, nil
}

func (a *Archive) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS mirrored_entries (
			slug        TEXT NOT NULL,
			guid        TEXT NOT NULL,
			title       TEXT NOT NULL,
			link        TEXT NOT NULL,
			author      TEXT DEFAULT '',
			published   TEXT DEFAULT '',
			first_seen  TEXT NOT NULL,
			last_run_id TEXT NOT NULL,
			archived_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (slug, guid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mirrored_entries_slug ON mirrored_entries(slug)`,
	}
	for _, m := range migrations {
		if _, err := a.db.Exec(m); err != nil {
			return fmt.Errorf("归档数据库迁移失败: %w", err)
		}
	}
	return nil
}

// Record 归档一个订阅源本轮输出的全部条目。
// 同一 (slug, guid) 重复归档时刷新内容字段，first_seen 保持首次值。
func (a *Archive) Record(runID, slug string, entries []feed.Entry) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("开启归档事务失败: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO mirrored_entries
		(slug, guid, title, link, author, published, first_seen, last_run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug, guid) DO UPDATE SET
			title = excluded.title,
			link = excluded.link,
			author = excluded.author,
			published = excluded.published,
			last_run_id = excluded.last_run_id`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("准备归档语句失败: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		published := ""
		if !e.Published.IsZero() {
			published = e.Published.Format(time.RFC3339)
		}
		if _, err := stmt.Exec(slug, e.GUID(), e.Title, e.Link, e.Author,
			published, e.FirstSeen.Format(time.RFC3339), runID); err != nil {
			tx.Rollback()
			return fmt.Errorf("归档条目 %s 失败: %w", e.GUID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交归档事务失败: %w", err)
	}
	return nil
}

// Count 返回某个订阅源归档的条目总数。
func (a *Archive) Count(slug string) (int, error) {
	var n int
	err := a.db.QueryRow(`SELECT COUNT(*) FROM mirrored_entries WHERE slug = ?`, slug).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("查询归档数量失败: %w", err)
	}
	return n, nil
}

// Close 关闭数据库连接。
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
