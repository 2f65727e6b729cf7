package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// patients — принадлежат сервису пациентов; здесь читаются для отчётов о конфликтах.
type Patient struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ClinicID uuid.UUID `gorm:"type:uuid;not null;index"`

	FullName string `gorm:"type:varchar(255);not null"`
	// Только цифры, см. NormalizePhone.
	Phone string `gorm:"type:varchar(32);index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (p *Patient) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	p.Phone = NormalizePhone(p.Phone)
	return nil
}

// NormalizePhone оставляет только цифры.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	b := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		c := phone[i]
		if c >= '0' && c <= '9' {
			b = append(b, c)
		}
	}
	return string(b)
}
