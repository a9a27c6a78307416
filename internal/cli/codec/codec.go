// Package codec превращает пачку сущностей в wire-представление и обратно.
// Обязательные поля проверяются строго: отсутствие или неверная форма любого
// из шести верхнеуровневых ключей — жёсткий отказ разбора, не пропуск.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"PassVault/internal/cli/common"
	"PassVault/internal/cli/model"
)

// Раздельный разбор коллекций: Split один раз валидирует верхний уровень,
// дальше каждая коллекция декодируется независимо (и при желании —
// параллельно; синхронизатор раздаёт эти вызовы пулу).

// RawPayload — верхний уровень wire-объекта с ещё не разобранными коллекциями.
type RawPayload struct {
	TimestampLastUpdate int64

	user        json.RawMessage
	device      json.RawMessage
	groups      json.RawMessage
	groupFields json.RawMessage
	fields      json.RawMessage
}

type wireEnvelope struct {
	TimestampLastUpdate *int64           `json:"timestampLastUpdate"`
	User                *json.RawMessage `json:"user"`
	Device              *json.RawMessage `json:"device"`
	Groups              *json.RawMessage `json:"groups"`
	GroupFields         *json.RawMessage `json:"groupFields"`
	Fields              *json.RawMessage `json:"fields"`
}

// Split разбирает верхний уровень ответа и проверяет наличие всех шести
// обязательных ключей. Пустое тело и не-объект — ErrMalformedPayload.
func Split(raw []byte) (*RawPayload, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", common.ErrMalformedPayload)
	}
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedPayload, err)
	}
	if env.TimestampLastUpdate == nil || env.User == nil || env.Device == nil ||
		env.Groups == nil || env.GroupFields == nil || env.Fields == nil {
		return nil, fmt.Errorf("%w: missing required top-level field", common.ErrMalformedPayload)
	}
	return &RawPayload{
		TimestampLastUpdate: *env.TimestampLastUpdate,
		user:                *env.User,
		device:              *env.Device,
		groups:              *env.Groups,
		groupFields:         *env.GroupFields,
		fields:              *env.Fields,
	}, nil
}

// DecodeIdentity разбирает user и device.
func (p *RawPayload) DecodeIdentity() (*model.User, *model.Device, error) {
	var ud userDTO
	if err := json.Unmarshal(p.user, &ud); err != nil {
		return nil, nil, fmt.Errorf("%w: user: %v", common.ErrMalformedPayload, err)
	}
	u, err := ud.toModel()
	if err != nil {
		return nil, nil, err
	}
	var dd deviceDTO
	if err := json.Unmarshal(p.device, &dd); err != nil {
		return nil, nil, fmt.Errorf("%w: device: %v", common.ErrMalformedPayload, err)
	}
	d, err := dd.toModel()
	if err != nil {
		return nil, nil, err
	}
	return u, d, nil
}

// DecodeGroups разбирает коллекцию groups.
func (p *RawPayload) DecodeGroups() ([]*model.Group, error) {
	var dtos []groupDTO
	if err := json.Unmarshal(p.groups, &dtos); err != nil {
		return nil, fmt.Errorf("%w: groups: %v", common.ErrMalformedPayload, err)
	}
	res := make([]*model.Group, 0, len(dtos))
	for _, d := range dtos {
		g, err := d.toModel()
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, nil
}

// DecodeGroupFields разбирает коллекцию groupFields.
func (p *RawPayload) DecodeGroupFields() ([]*model.GroupField, error) {
	var dtos []groupFieldDTO
	if err := json.Unmarshal(p.groupFields, &dtos); err != nil {
		return nil, fmt.Errorf("%w: groupFields: %v", common.ErrMalformedPayload, err)
	}
	res := make([]*model.GroupField, 0, len(dtos))
	for _, d := range dtos {
		f, err := d.toModel()
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, nil
}

// DecodeFields разбирает коллекцию fields.
func (p *RawPayload) DecodeFields() ([]*model.Field, error) {
	var dtos []fieldDTO
	if err := json.Unmarshal(p.fields, &dtos); err != nil {
		return nil, fmt.Errorf("%w: fields: %v", common.ErrMalformedPayload, err)
	}
	res := make([]*model.Field, 0, len(dtos))
	for _, d := range dtos {
		f, err := d.toModel()
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, nil
}

// EncodeGroups сериализует коллекцию groups; пустая коллекция — "[]".
func EncodeGroups(gs []*model.Group) (json.RawMessage, error) {
	dtos := make([]groupDTO, 0, len(gs))
	for _, g := range gs {
		dtos = append(dtos, groupToDTO(g))
	}
	return json.Marshal(dtos)
}

// EncodeGroupFields сериализует коллекцию groupFields.
func EncodeGroupFields(fs []*model.GroupField) (json.RawMessage, error) {
	dtos := make([]groupFieldDTO, 0, len(fs))
	for _, f := range fs {
		dtos = append(dtos, groupFieldToDTO(f))
	}
	return json.Marshal(dtos)
}

// EncodeFields сериализует коллекцию fields.
func EncodeFields(fs []*model.Field) (json.RawMessage, error) {
	dtos := make([]fieldDTO, 0, len(fs))
	for _, f := range fs {
		dtos = append(dtos, fieldToDTO(f))
	}
	return json.Marshal(dtos)
}

// EncodeIdentity сериализует user и device.
func EncodeIdentity(u *model.User, d *model.Device) (json.RawMessage, json.RawMessage, error) {
	ub, err := json.Marshal(userToDTO(u))
	if err != nil {
		return nil, nil, err
	}
	db, err := json.Marshal(deviceToDTO(d))
	if err != nil {
		return nil, nil, err
	}
	return ub, db, nil
}

// Assemble складывает заранее сериализованные части в итоговое тело запроса.
func Assemble(ts int64, user, device, groups, groupFields, fields json.RawMessage) ([]byte, error) {
	out := struct {
		TimestampLastUpdate int64           `json:"timestampLastUpdate"`
		User                json.RawMessage `json:"user"`
		Device              json.RawMessage `json:"device"`
		Groups              json.RawMessage `json:"groups"`
		GroupFields         json.RawMessage `json:"groupFields"`
		Fields              json.RawMessage `json:"fields"`
	}{ts, user, device, groups, groupFields, fields}
	return json.Marshal(out)
}
