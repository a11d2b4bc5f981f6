// Package rx implements the prescription workflow: a user submits
// scanned prescription files, the record sits in pending until a
// pharmacist with the right permission verifies or rejects it, and the
// decision is final.
package rx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"epharma/auth"
	"epharma/ent"
	"epharma/notify"
	"epharma/store"
)

// MaxFileSize bounds a single uploaded file.
const MaxFileSize = 5 << 20

var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"application/pdf": true,
}

var (
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("object storage unavailable")
)

// Upload is one file of a submission, validated before anything is
// written.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type Submission struct {
	PatientName      string
	DoctorName       string
	DoctorContact    string
	PrescriptionDate time.Time
	Medications      string
	Files            []Upload
}

type Service struct {
	rx       store.PrescriptionStore
	users    store.UserStore
	objects  ObjectStore
	notifier notify.Notifier

	// baseURL prefixes deep links in outbound notifications.
	baseURL  string
	onReview func(*ent.Prescription)
}

func NewService(rxStore store.PrescriptionStore, users store.UserStore, objects ObjectStore, notifier notify.Notifier, baseURL string) *Service {
	return &Service{
		rx:       rxStore,
		users:    users,
		objects:  objects,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// OnReview registers a hook invoked after every successful review, on
// the reviewing request's goroutine.
func (s *Service) OnReview(fn func(*ent.Prescription)) {
	s.onReview = fn
}

// Submit validates the fields and every file, uploads the files and
// creates the record in pending state. Any validation or upload failure
// aborts the whole submission before a record exists.
func (s *Service) Submit(ctx context.Context, userID int64, sub Submission) (*ent.Prescription, error) {
	if err := validateSubmission(sub); err != nil {
		return nil, err
	}

	var keys []string
	files := make([]ent.PrescriptionFile, 0, len(sub.Files))
	for _, f := range sub.Files {
		key := "prescriptions/" + uuid.NewString() + strings.ToLower(path.Ext(f.Filename))

		uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		url, err := s.objects.Put(uploadCtx, key, f.ContentType, f.Size, f.Content)
		cancel()
		if err != nil {
			s.discardUploads(keys)
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		keys = append(keys, key)

		files = append(files, ent.PrescriptionFile{
			Filename:    f.Filename,
			URL:         url,
			ContentType: f.ContentType,
			Size:        f.Size,
		})
	}

	p := &ent.Prescription{
		UserID:           userID,
		PatientName:      sub.PatientName,
		DoctorName:       sub.DoctorName,
		DoctorContact:    sub.DoctorContact,
		PrescriptionDate: sub.PrescriptionDate,
		Medications:      sub.Medications,
	}

	err := s.rx.CreatePrescription(ctx, p, files)
	if err != nil {
		s.discardUploads(keys)
		return nil, err
	}

	go s.notifySubmitted(p)

	return p, nil
}

// discardUploads removes objects whose submission never produced a
// record. Best effort: a leftover object is logged, not surfaced.
func (s *Service) discardUploads(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil {
			logrus.WithError(err).WithField("key", key).
				Warn("failed to discard orphaned upload")
		}
	}
}

// Review transitions a pending prescription to verified or rejected.
// The caller must hold view_prescriptions; the transition is one-way.
func (s *Service) Review(ctx context.Context, caller auth.Caller, id int64, verdict, notes string) (*ent.Prescription, error) {
	if !caller.Can(ent.PermViewPrescriptions) {
		return nil, auth.ErrPermissionDenied
	}

	if verdict != ent.PrescriptionVerified && verdict != ent.PrescriptionRejected {
		return nil, fmt.Errorf("%w: verdict must be %q or %q",
			ErrValidation, ent.PrescriptionVerified, ent.PrescriptionRejected)
	}

	p, err := s.rx.ReviewPrescription(ctx, id, verdict, notes, caller.UserID)
	if err != nil {
		return nil, err
	}

	if s.onReview != nil {
		s.onReview(p)
	}
	go s.notifyReviewed(p)

	return p, nil
}

// History lists the caller's own submissions, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]ent.Prescription, error) {
	return s.rx.Prescriptions(ctx, userID)
}

// List is the reviewer's queue; status narrows it, empty means all.
func (s *Service) List(ctx context.Context, caller auth.Caller, status string) ([]ent.Prescription, error) {
	if !caller.Can(ent.PermViewPrescriptions) {
		return nil, auth.ErrPermissionDenied
	}

	return s.rx.PrescriptionsByStatus(ctx, status)
}

// Get returns one record, visible to its owner and to reviewers.
func (s *Service) Get(ctx context.Context, caller auth.Caller, id int64) (*ent.Prescription, error) {
	p, err := s.rx.Prescription(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.UserID != caller.UserID && !caller.Can(ent.PermViewPrescriptions) {
		return nil, auth.ErrPermissionDenied
	}

	return p, nil
}

func validateSubmission(sub Submission) error {
	var errs []error

	if strings.TrimSpace(sub.PatientName) == "" {
		errs = append(errs, fmt.Errorf("%w: patient name is required", ErrValidation))
	}
	if strings.TrimSpace(sub.DoctorName) == "" {
		errs = append(errs, fmt.Errorf("%w: doctor name is required", ErrValidation))
	}
	if strings.TrimSpace(sub.DoctorContact) == "" {
		errs = append(errs, fmt.Errorf("%w: doctor contact is required", ErrValidation))
	}
	if sub.PrescriptionDate.IsZero() {
		errs = append(errs, fmt.Errorf("%w: prescription date is required", ErrValidation))
	}
	if len(sub.Files) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one file is required", ErrValidation))
	}

	for _, f := range sub.Files {
		if !allowedTypes[strings.ToLower(f.ContentType)] {
			errs = append(errs, fmt.Errorf("%w: file %q: content type %q is not allowed, expected JPEG, PNG or PDF",
				ErrValidation, f.Filename, f.ContentType))
		}
		if f.Size > MaxFileSize {
			errs = append(errs, fmt.Errorf("%w: file %q: size %d exceeds the 5MB limit",
				ErrValidation, f.Filename, f.Size))
		}
		if f.Size <= 0 {
			errs = append(errs, fmt.Errorf("%w: file %q: file is empty",
				ErrValidation, f.Filename))
		}
	}

	return errors.Join(errs...)
}

func (s *Service) notifySubmitted(p *ent.Prescription) {
	text := fmt.Sprintf(
		"New prescription #%d\nPatient: %s\nDoctor: %s (%s)\nDate: %s\nFiles: %d",
		p.ID, p.PatientName, p.DoctorName, p.DoctorContact,
		p.PrescriptionDate.Format("2006-01-02"), len(p.Files))

	s.deliver(notify.Message{
		RecordID: p.ID,
		DeepLink: fmt.Sprintf("%s/admin/prescriptions/%d", s.baseURL, p.ID),
		Text:     text,
	}, p.UserID)
}

func (s *Service) notifyReviewed(p *ent.Prescription) {
	text := fmt.Sprintf("Prescription #%d for %s has been %s.",
		p.ID, p.PatientName, p.Status)
	if p.ReviewNotes != nil && *p.ReviewNotes != "" {
		text += "\nNotes: " + *p.ReviewNotes
	}

	s.deliver(notify.Message{
		RecordID: p.ID,
		DeepLink: fmt.Sprintf("%s/prescriptions/%d", s.baseURL, p.ID),
		Text:     text,
	}, p.UserID)
}

// deliver is fire-and-forget: a failed notification is logged and never
// affects the operation that produced it.
func (s *Service) deliver(msg notify.Message, userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if u, err := s.users.User(ctx, userID); err == nil {
		msg.Recipient = u.Email
	}

	if err := s.notifier.Notify(ctx, msg); err != nil {
		logrus.WithError(err).WithField("record_id", msg.RecordID).
			Warn("prescription notification failed")
	}
}
