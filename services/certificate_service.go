package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/access"
	"github.com/sahilchouksey/learnhub-api/services/progress"
	"github.com/sahilchouksey/learnhub-api/services/storage"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"gorm.io/gorm"
)

const (
	certificateWidth  = 1200
	certificateHeight = 850
)

// CertificateService issues a completion certificate once a course reaches 100%
type CertificateService struct {
	db      *gorm.DB
	courses *CourseService
	store   storage.Store
	font    *truetype.Font // nil falls back to the built-in bitmap face
	log     *logger.Logger
	now     func() time.Time
}

// NewCertificateService loads the TTF at fontPath when set. A font that
// cannot be loaded is logged and the bitmap face is used instead.
func NewCertificateService(db *gorm.DB, courses *CourseService, store storage.Store, fontPath string, log *logger.Logger) *CertificateService {
	if store == nil {
		store = storage.Unconfigured{}
	}
	s := &CertificateService{
		db:      db,
		courses: courses,
		store:   store,
		log:     log.With("service", "CertificateService"),
		now:     time.Now,
	}
	if fontPath != "" {
		f, err := loadFont(fontPath)
		if err != nil {
			s.log.Warn("certificate font unavailable, using built-in face", "path", fontPath, "error", err)
		} else {
			s.font = f
		}
	}
	return s
}

func loadFont(fontPath string) (*truetype.Font, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return parsedFont, nil
}

func (s *CertificateService) face(size float64) font.Face {
	if s.font == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(s.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Issue returns the caller's certificate for a course, rendering and storing
// it on first request. Progress is recomputed, never read from the record.
func (s *CertificateService) Issue(ctx context.Context, session *auth.Session, courseID uint) (*model.Certificate, error) {
	if session == nil {
		return nil, ErrUnauthenticated
	}

	record, err := findPurchase(ctx, s.db, session.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if !access.HasAccess(record) {
		return nil, access.ErrNoCourseAccess
	}

	if existing, err := s.find(ctx, session.UserID, courseID); err != nil || existing != nil {
		return existing, err
	}

	course, err := s.courses.Catalog(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if progress.Calculate(course, progress.Completed(record.Completed())).Progress != 100 {
		return nil, ErrCourseIncomplete
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, session.UserID).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	issued := s.now().UTC()
	png, err := s.Render(user.Name, course.Title, issued)
	if err != nil {
		return nil, err
	}
	url, err := s.store.Put(ctx, fmt.Sprintf("certificates/%d/%d.png", courseID, session.UserID), png, "image/png")
	if err != nil {
		return nil, err
	}

	cert := &model.Certificate{UserID: session.UserID, CourseID: courseID, URL: url, IssuedAt: issued}
	if err := s.db.WithContext(ctx).Create(cert).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.find(ctx, session.UserID, courseID)
		}
		return nil, fmt.Errorf("failed to save certificate: %w", err)
	}

	s.log.Info("certificate issued", "user_id", session.UserID, "course_id", courseID)
	return cert, nil
}

func (s *CertificateService) find(ctx context.Context, userID, courseID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Limit(1).Find(&cert).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	if cert.ID == 0 {
		return nil, nil
	}
	return &cert, nil
}

// Render draws the certificate as a PNG
func (s *CertificateService) Render(name, courseTitle string, issued time.Time) ([]byte, error) {
	const w, h = float64(certificateWidth), float64(certificateHeight)

	dc := gg.NewContext(certificateWidth, certificateHeight)

	dc.SetColor(color.NRGBA{R: 0xfb, G: 0xf8, B: 0xf1, A: 0xff})
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	dc.SetColor(color.NRGBA{R: 0x1f, G: 0x3a, B: 0x5f, A: 0xff})
	dc.SetLineWidth(12)
	dc.DrawRectangle(30, 30, w-60, h-60)
	dc.Stroke()

	lines := []struct {
		text string
		size float64
		y    float64
	}{
		{"Certificate of Completion", 56, 200},
		{"This certifies that", 28, 320},
		{name, 64, 420},
		{"has completed the course", 28, 510},
		{courseTitle, 44, 590},
		{issued.Format("January 2, 2006"), 24, 720},
	}
	for _, l := range lines {
		dc.SetFontFace(s.face(l.size))
		dc.DrawStringAnchored(l.text, w/2, l.y, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
