package crypto

import "crypto/subtle"

// Secret — байтовый буфер для секретов, живущих только в памяти сессии.
// Затирается явно, не полагаясь на сборщик мусора.
type Secret struct {
	buf []byte
}

// NewSecret копирует src во внутренний буфер.
// Исходный срез остаётся на ответственности вызывающего.
func NewSecret(src []byte) *Secret {
	b := make([]byte, len(src))
	copy(b, src)
	return &Secret{buf: b}
}

// Bytes возвращает внутренний буфер без копирования. Не сохранять ссылку
// дольше, чем живёт Secret.
func (s *Secret) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.buf
}

// Equal сравнивает содержимое в константное время.
func (s *Secret) Equal(other []byte) bool {
	if s == nil {
		return len(other) == 0
	}
	return subtle.ConstantTimeCompare(s.buf, other) == 1
}

// Wipe затирает буфер нулями. Повторные вызовы безопасны.
func (s *Secret) Wipe() {
	if s == nil {
		return
	}
	for i := range s.buf {
		s.buf[i] = 0
	}
	s.buf = s.buf[:0]
}
