package audit

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GoPolymarket/riskgate/internal/model"
)

// Repo is the durable audit sink; nil means file + ring buffer only.
type Repo interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, actor string, limit int) ([]*model.AuditLog, error)
}

// Service fans admin audit entries out to a daily JSONL file, an in-memory
// ring for fast listing, and an optional durable repo. Writes are async so
// a slow sink never blocks the admin path.
type Service struct {
	logChan chan *model.AuditLog
	logFile *os.File
	buffer  *ringBuffer
	repo    Repo
}

func NewService(logDir string, repo Repo) (*Service, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	filename := filepath.Join(logDir, "admin-audit-"+time.Now().Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		logChan: make(chan *model.AuditLog, 1000),
		logFile: f,
		buffer:  newRingBuffer(1000),
		repo:    repo,
	}

	go svc.processLogs()

	return svc, nil
}

func (s *Service) Log(entry *model.AuditLog) {
	if s.buffer != nil {
		s.buffer.Add(entry)
	}
	select {
	case s.logChan <- entry:
	default:
		// Buffer full: drop rather than block the admin path.
		log.Println("audit log buffer full, dropping entry")
	}
}

func (s *Service) List(ctx context.Context, actor string, limit int) ([]*model.AuditLog, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx, actor, limit)
		if err == nil {
			return records, nil
		}
	}
	if s.buffer == nil {
		return nil, nil
	}
	return s.buffer.List(actor, limit), nil
}

func (s *Service) processLogs() {
	encoder := json.NewEncoder(s.logFile)
	for entry := range s.logChan {
		if s.repo != nil {
			if err := s.repo.Insert(context.Background(), entry); err != nil {
				log.Printf("failed to write audit log to DB: %v", err)
			}
		}
		if err := encoder.Encode(entry); err != nil {
			log.Printf("failed to write audit log: %v", err)
		}
	}
}

func (s *Service) Close() {
	close(s.logChan)
	s.logFile.Close()
}

type ringBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditLog
	nextIndex int
}

func newRingBuffer(maxSize int) *ringBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &ringBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditLog, 0, maxSize),
	}
}

func (b *ringBuffer) Add(entry *model.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

func (b *ringBuffer) List(actor string, limit int) []*model.AuditLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AuditLog, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if entry == nil {
			continue
		}
		if actor != "" && entry.Actor != actor {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
