package repository

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/liar-game/internal/errors"
	"github.com/wfunc/liar-game/internal/game"
	"github.com/wfunc/liar-game/internal/models"
	"gorm.io/gorm"
)

// SubjectRepository 题库仓储接口
type SubjectRepository interface {
	BaseRepository
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.Subject, error)
	FindByName(ctx context.Context, name string) (*models.Subject, error)
	GetAll(ctx context.Context, pagination *Pagination) ([]*models.Subject, error)
	AddWords(ctx context.Context, subjectID uint, texts []string) error
	PickWordPair(ctx context.Context) (game.WordPair, error)
}

// subjectRepo 题库仓储实现
type subjectRepo struct {
	*BaseRepo
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSubjectRepository 创建题库仓储
func NewSubjectRepository(db *gorm.DB) SubjectRepository {
	return &subjectRepo{
		BaseRepo: &BaseRepo{db: db},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create 创建主题
func (r *subjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	return r.db.WithContext(ctx).Create(subject).Error
}

// Update 更新主题
func (r *subjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	return r.db.WithContext(ctx).Save(subject).Error
}

// Delete 删除主题（软删除）
func (r *subjectRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Subject{}, id).Error
}

// FindByID 根据ID查找主题
func (r *subjectRepo) FindByID(ctx context.Context, id uint) (*models.Subject, error) {
	var subject models.Subject
	err := r.db.WithContext(ctx).Preload("Words").First(&subject, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrNotFound, "主题不存在")
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return &subject, nil
}

// FindByName 根据名称查找主题
func (r *subjectRepo) FindByName(ctx context.Context, name string) (*models.Subject, error) {
	var subject models.Subject
	err := r.db.WithContext(ctx).Preload("Words").Where("name = ?", name).First(&subject).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrNotFound, "主题不存在")
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return &subject, nil
}

// GetAll 分页获取主题列表
func (r *subjectRepo) GetAll(ctx context.Context, pagination *Pagination) ([]*models.Subject, error) {
	var subjects []*models.Subject

	query := r.db.WithContext(ctx).Model(&models.Subject{})
	if err := query.Count(&pagination.Total).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	err := query.Preload("Words").
		Scopes(Paginate(pagination)).
		Order("id ASC").
		Find(&subjects).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return subjects, nil
}

// AddWords 向主题追加词语
func (r *subjectRepo) AddWords(ctx context.Context, subjectID uint, texts []string) error {
	words := make([]models.Word, 0, len(texts))
	for _, text := range texts {
		words = append(words, models.Word{SubjectID: subjectID, Text: text})
	}
	if len(words) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&words).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert, "追加词语失败")
	}
	return nil
}

// PickWordPair 随机抽取一个主题和两个不同的词
//
// 实现 game.SubjectPicker：第一个词给平民，第二个给骗子。
func (r *subjectRepo) PickWordPair(ctx context.Context) (game.WordPair, error) {
	var subjects []*models.Subject
	err := r.db.WithContext(ctx).
		Preload("Words").
		Where("status = ?", "active").
		Find(&subjects).Error
	if err != nil {
		return game.WordPair{}, errors.Wrap(err, errors.ErrDatabaseQuery, "读取题库失败")
	}

	// 至少需要两个词才能出题
	candidates := subjects[:0]
	for _, s := range subjects {
		if len(s.Words) >= 2 {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return game.WordPair{}, errors.New(errors.ErrNotFound, "题库为空或词语不足")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	subject := candidates[r.rng.Intn(len(candidates))]
	i := r.rng.Intn(len(subject.Words))
	j := r.rng.Intn(len(subject.Words) - 1)
	if j >= i {
		j++
	}

	return game.WordPair{
		Subject:     subject.Name,
		CitizenWord: subject.Words[i].Text,
		LiarWord:    subject.Words[j].Text,
	}, nil
}

// WithTx 使用事务
func (r *subjectRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &subjectRepo{
		BaseRepo: &BaseRepo{db: tx},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}
