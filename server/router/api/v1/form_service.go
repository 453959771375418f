package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nbolat/course-site/internal/phone"
	"github.com/nbolat/course-site/store"
)

// multiChoice accepts either a single string or a list of strings. The form
// sends checkbox groups as arrays; they are stored as a comma-joined string.
type multiChoice string

func (m *multiChoice) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*m = multiChoice(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*m = multiChoice(strings.Join(list, ", "))
	return nil
}

type submitFormRequest struct {
	UserID                string      `json:"userId"`
	Name                  string      `json:"name"`
	Phone                 string      `json:"phone"`
	ContactMethod         multiChoice `json:"contactMethod"`
	HowFoundUs            multiChoice `json:"howFoundUs"`
	WhyInterested         multiChoice `json:"whyInterested"`
	ProgrammingExperience multiChoice `json:"programmingExperience"`
	LanguageInterest      multiChoice `json:"languageInterest"`
	LearningFormat        multiChoice `json:"learningFormat"`
	PreferredDay          multiChoice `json:"preferredDay"`
	PreferredTime         multiChoice `json:"preferredTime"`
}

func (s *APIV1Service) handleSubmitForm(c echo.Context) error {
	var req submitFormRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "некорректный запрос")
	}
	if req.Name == "" || req.Phone == "" {
		return c.String(http.StatusBadRequest, "Имя и телефон являются обязательными полями.")
	}

	normalizedPhone, err := phone.ParseAndFormat(req.Phone, phone.DefaultRegion)
	if err != nil {
		return c.String(http.StatusBadRequest, "Некорректный номер телефона.")
	}

	create := &store.FormSubmission{
		UserID:                req.UserID,
		Name:                  req.Name,
		Phone:                 normalizedPhone,
		ContactMethod:         string(req.ContactMethod),
		HowFoundUs:            string(req.HowFoundUs),
		WhyInterested:         string(req.WhyInterested),
		ProgrammingExperience: string(req.ProgrammingExperience),
		LanguageInterest:      string(req.LanguageInterest),
		LearningFormat:        string(req.LearningFormat),
		PreferredDay:          string(req.PreferredDay),
		PreferredTime:         string(req.PreferredTime),
	}
	if err := s.Store.CreateFormSubmission(c.Request().Context(), create); err != nil {
		slog.Error("failed to save form submission", slog.String("error", err.Error()))
		return c.String(http.StatusInternalServerError, "Внутренняя ошибка сервера.")
	}

	slog.Info("form submission saved", slog.Int64("id", create.ID))
	return c.String(http.StatusOK, "Данные формы получены и сохранены")
}
