package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/interview-dispatch/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createInterviewRoundsTable(),
	})

	return m.Migrate()
}

func createInterviewRoundsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_interview_rounds",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.InterviewRoundModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_interview_rounds_pending ON interview_rounds (created_at, id) WHERE email_status = 'Pending'`,
				`CREATE INDEX IF NOT EXISTS idx_interview_rounds_candidate_email ON interview_rounds (candidate_email)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.InterviewRoundModel{})
		},
	}
}
