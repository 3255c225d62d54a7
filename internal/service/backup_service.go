package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"bibliobalance/internal/database"
	"bibliobalance/internal/models"
	"bibliobalance/internal/repository"
)

// BackupVersion is written into every export.
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string                    `json:"version"`
	ExportedAt   time.Time                 `json:"exported_at"`
	DatabaseType string                    `json:"database_type"`
	Profiles     []ProfileBackup           `json:"profiles"`
	Books        []models.Book             `json:"books"`
	Stats        []models.ReadingStats     `json:"reading_stats"`
	Challenges   []models.ReadingChallenge `json:"reading_challenges"`
}

// ProfileBackup carries the profile columns hidden from the API.
type ProfileBackup struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Username      string    `json:"username"`
	AvatarURL     *string   `json:"avatar_url"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (p ProfileBackup) profile() *models.Profile {
	return &models.Profile{
		ID:            p.ID,
		Email:         p.Email,
		PasswordHash:  p.PasswordHash,
		Username:      p.Username,
		AvatarURL:     p.AvatarURL,
		OAuthProvider: p.OAuthProvider,
		OAuthSubject:  p.OAuthSubject,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db     *database.DB
	logger *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *zap.Logger) *BackupService {
	return &BackupService{db: db, logger: logger}
}

// Export writes a complete backup of the database to w as indented JSON.
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.GetDialect().DriverName(),
	}

	profiles, err := repository.NewProfileRepository(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export profiles: %w", err)
	}
	backup.Profiles = make([]ProfileBackup, 0, len(profiles))
	for _, p := range profiles {
		backup.Profiles = append(backup.Profiles, ProfileBackup{
			ID:            p.ID,
			Email:         p.Email,
			PasswordHash:  p.PasswordHash,
			Username:      p.Username,
			AvatarURL:     p.AvatarURL,
			OAuthProvider: p.OAuthProvider,
			OAuthSubject:  p.OAuthSubject,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		})
	}

	if backup.Books, err = repository.NewBookRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export books: %w", err)
	}

	statsRepo := repository.NewStatsRepository(s.db)
	if backup.Stats, err = statsRepo.ListAllStats(ctx); err != nil {
		return nil, fmt.Errorf("failed to export reading stats: %w", err)
	}
	if backup.Challenges, err = statsRepo.ListAllChallenges(ctx); err != nil {
		return nil, fmt.Errorf("failed to export reading challenges: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("Database exported",
		zap.Int("profiles", len(backup.Profiles)),
		zap.Int("books", len(backup.Books)),
		zap.Int("reading_stats", len(backup.Stats)),
		zap.Int("reading_challenges", len(backup.Challenges)))
	return backup, nil
}

// clearTables lists the tables emptied by a clearing import, children first.
var clearTables = []string{
	"reading_challenges",
	"reading_stats",
	"books",
	"profiles",
}

// Import restores a backup read from r in a single transaction. With
// clearData set, existing rows are deleted first; otherwise any row that
// already exists aborts the import.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clearData bool) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.logger.Info("Importing backup",
		zap.String("version", backup.Version),
		zap.Time("exported_at", backup.ExportedAt),
		zap.String("source_database", backup.DatabaseType))

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clearData {
			for _, table := range clearTables {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("failed to clear table %s: %w", table, err)
				}
			}
		}
		return importBackup(ctx, tx, &backup)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Database import completed",
		zap.Int("profiles", len(backup.Profiles)),
		zap.Int("books", len(backup.Books)),
		zap.Int("reading_stats", len(backup.Stats)),
		zap.Int("reading_challenges", len(backup.Challenges)))
	return &backup, nil
}

func importBackup(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	profiles := repository.NewProfileRepository(tx)
	for _, p := range backup.Profiles {
		if err := profiles.Create(ctx, p.profile()); err != nil {
			return fmt.Errorf("failed to import profile %s: %w", p.ID, err)
		}
	}

	books := repository.NewBookRepository(tx)
	for i := range backup.Books {
		if err := books.Create(ctx, &backup.Books[i]); err != nil {
			return fmt.Errorf("failed to import book %s: %w", backup.Books[i].ID, err)
		}
	}

	statsRepo := repository.NewStatsRepository(tx)
	for i := range backup.Stats {
		inserted, err := statsRepo.CreateStats(ctx, &backup.Stats[i])
		if err != nil {
			return fmt.Errorf("failed to import reading stats %s: %w", backup.Stats[i].ID, err)
		}
		if !inserted {
			return fmt.Errorf("failed to import reading stats %s: %w", backup.Stats[i].ID, repository.ErrDuplicate)
		}
	}

	for i := range backup.Challenges {
		if err := statsRepo.CreateChallenge(ctx, &backup.Challenges[i]); err != nil {
			return fmt.Errorf("failed to import reading challenge %s: %w", backup.Challenges[i].ID, err)
		}
	}
	return nil
}
