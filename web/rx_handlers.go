package web

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"epharma/metrics"
	"epharma/rx"
)

func (s *server) submitPrescription(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form expected")
	}

	field := func(name string) string {
		if vs := form.Value[name]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	sub := rx.Submission{
		PatientName:   field("patient_name"),
		DoctorName:    field("doctor_name"),
		DoctorContact: field("doctor_contact"),
		Medications:   field("medications"),
	}

	if raw := field("prescription_date"); raw != "" {
		sub.PrescriptionDate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid prescription_date, want YYYY-MM-DD")
		}
	}

	for _, header := range form.File["files"] {
		f, err := header.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "unreadable file "+header.Filename)
		}
		defer f.Close()

		sub.Files = append(sub.Files, rx.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get(fiber.HeaderContentType),
			Size:        header.Size,
			Content:     f,
		})
	}

	p, err := s.rx.Submit(c.Context(), caller(c).UserID, sub)
	if err != nil {
		return err
	}

	metrics.PrescriptionsSubmitted.Inc()

	return c.Status(fiber.StatusCreated).JSON(p)
}

func (s *server) prescriptionHistory(c *fiber.Ctx) error {
	ps, err := s.rx.History(c.Context(), caller(c).UserID)
	if err != nil {
		return err
	}

	return c.JSON(ps)
}

func (s *server) getPrescription(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	p, err := s.rx.Get(c.Context(), caller(c), id)
	if err != nil {
		return err
	}

	return c.JSON(p)
}

func (s *server) adminListPrescriptions(c *fiber.Ctx) error {
	ps, err := s.rx.List(c.Context(), caller(c), c.Query("status", ""))
	if err != nil {
		return err
	}

	return c.JSON(ps)
}

func (s *server) reviewPrescription(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Status      string `json:"status"`
		ReviewNotes string `json:"review_notes"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	p, err := s.rx.Review(c.Context(), caller(c), id, req.Status, req.ReviewNotes)
	if err != nil {
		return err
	}

	return c.JSON(p)
}
