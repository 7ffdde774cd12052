package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/repository"
	"mystery_hunt_backend/internal/util"
	"mystery_hunt_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// 关卡数据文件格式
type CatalogFile struct {
	Mysteries []CatalogMystery `yaml:"mysteries"`
}

type CatalogMystery struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Image       string         `yaml:"image"`
	HomePage    string         `yaml:"home_page"`
	JoiningPin  string         `yaml:"joining_pin"`
	IsVisible   *bool          `yaml:"is_visible"`
	StartsAt    time.Time      `yaml:"starts_at"`
	EndsAt      time.Time      `yaml:"ends_at"`
	Levels      []CatalogLevel `yaml:"levels"`
}

type CatalogLevel struct {
	Name      string            `yaml:"name"`
	Quest     string            `yaml:"quest"`
	Present   *CatalogPresent   `yaml:"present"`
	Questions []CatalogQuestion `yaml:"questions"`
}

type CatalogPresent struct {
	Type    string `yaml:"type"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
	Image   string `yaml:"image"`
}

type CatalogQuestion struct {
	Question    string        `yaml:"question"`
	Image       string        `yaml:"image"`
	AnswerType  string        `yaml:"answer_type"`
	Answer      string        `yaml:"answer"`
	MaxAttempts int           `yaml:"max_attempts"`
	Hints       []CatalogHint `yaml:"hints"`
}

type CatalogHint struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
	Image   string `yaml:"image"`
}

type ImportStats struct {
	Mysteries int
	Skipped   int
	Levels    int
	Questions int
}

// CatalogService 从 YAML 导入活动、关卡、题目
type CatalogService struct {
	DB        *gorm.DB
	CreatorID uint
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

func ParseCatalog(r io.Reader) (*CatalogFile, error) {
	var file CatalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrValidation, err)
	}
	if err := file.validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *CatalogFile) validate() error {
	for i, m := range f.Mysteries {
		if m.Name == "" || m.JoiningPin == "" {
			return fmt.Errorf("%w: mystery #%d needs name and joining_pin", util.ErrValidation, i+1)
		}
		if !m.EndsAt.IsZero() && m.EndsAt.Before(m.StartsAt) {
			return fmt.Errorf("%w: mystery %q ends before it starts", util.ErrValidation, m.Name)
		}
		for j, l := range m.Levels {
			if len(l.Questions) == 0 {
				return fmt.Errorf("%w: level #%d of %q has no questions", util.ErrValidation, j+1, m.Name)
			}
			for k, q := range l.Questions {
				t, ok := model.ParseAnswerType(q.AnswerType)
				if !ok {
					return fmt.Errorf("%w: question #%d of level %q: %q",
						util.ErrUnsupportedQuestionType, k+1, l.Name, q.AnswerType)
				}
				if t == model.AnswerMatch && q.Answer == "" {
					return fmt.Errorf("%w: match question #%d of level %q has no answer", util.ErrValidation, k+1, l.Name)
				}
			}
		}
	}
	return nil
}

// Import 在一个事务中导入；口令已存在的活动跳过
func (s *CatalogService) Import(ctx context.Context, file *CatalogFile) (*ImportStats, error) {
	stats := &ImportStats{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mysteries := repository.NewMysteryRepository(tx)
		levels := repository.NewLevelRepository(tx)
		questions := repository.NewQuestionRepository(tx)

		for _, cm := range file.Mysteries {
			if _, err := mysteries.FindByPin(ctx, cm.JoiningPin); err == nil {
				stats.Skipped++
				continue
			} else if !errors.Is(err, util.ErrMysteryNotFound) {
				return err
			}

			visible := true
			if cm.IsVisible != nil {
				visible = *cm.IsVisible
			}
			m := &model.Mystery{
				Name:        cm.Name,
				Description: cm.Description,
				ImageRef:    cm.Image,
				HomePage:    cm.HomePage,
				JoiningPin:  cm.JoiningPin,
				IsVisible:   visible,
				StartsAt:    cm.StartsAt,
				EndsAt:      cm.EndsAt,
				CreatedBy:   s.CreatorID,
			}
			if err := mysteries.Create(ctx, m); err != nil {
				return err
			}
			stats.Mysteries++

			for _, cl := range cm.Levels {
				level := &model.Level{MysteryID: m.ID, Name: cl.Name, Quest: cl.Quest}
				if err := levels.Create(ctx, level); err != nil {
					return err
				}
				stats.Levels++

				if cl.Present != nil {
					p := &model.Present{
						LevelID:  level.ID,
						Type:     cl.Present.Type,
						Title:    cl.Present.Title,
						Content:  cl.Present.Content,
						ImageRef: cl.Present.Image,
					}
					if err := levels.CreatePresent(ctx, p); err != nil {
						return err
					}
				}

				for _, cq := range cl.Questions {
					t, _ := model.ParseAnswerType(cq.AnswerType)
					q := &model.Question{
						LevelID:       level.ID,
						Text:          cq.Question,
						ImageRef:      cq.Image,
						CorrectAnswer: cq.Answer,
						AnswerType:    t,
						MaxAttempts:   cq.MaxAttempts,
					}
					if q.MaxAttempts <= 0 {
						q.MaxAttempts = 3
					}
					if err := questions.Create(ctx, q); err != nil {
						return err
					}
					stats.Questions++

					for _, h := range cq.Hints {
						hint := &model.HintMail{QuestionID: q.ID, Subject: h.Subject, Body: h.Body, ImageRef: h.Image}
						if err := questions.CreateHint(ctx, hint); err != nil {
							return err
						}
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Catalog imported",
		zap.Int("mysteries", stats.Mysteries),
		zap.Int("skipped", stats.Skipped),
		zap.Int("levels", stats.Levels),
		zap.Int("questions", stats.Questions))
	return stats, nil
}

// ImportReader 解析并导入
func (s *CatalogService) ImportReader(ctx context.Context, r io.Reader) (*ImportStats, error) {
	file, err := ParseCatalog(r)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, file)
}
