package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"PassVault/internal/model"
	"PassVault/internal/service"
)

// DTO протокола синхронизации. Поле id несёт локальный id на устройстве
// и заполняется сервером только как эхо в ответе на push; serverId —
// серверный id. Отсутствующие числовые id опускаются, не null.
type groupDTO struct {
	ID            *int64  `json:"id,omitempty"`
	ServerID      *int64  `json:"serverId,omitempty"`
	UserID        *int64  `json:"userId,omitempty"`
	GroupID       *int64  `json:"groupId,omitempty"`
	ServerGroupID *int64  `json:"serverGroupId,omitempty"`
	Title         *string `json:"title"`
	Icon          string  `json:"icon,omitempty"`
	Note          string  `json:"note,omitempty"`
	Deleted       bool    `json:"deleted,omitempty"`
	Created       *int64  `json:"timestampCreation,omitempty"`
}

type groupFieldDTO struct {
	ID            *int64  `json:"id,omitempty"`
	ServerID      *int64  `json:"serverId,omitempty"`
	UserID        *int64  `json:"userId,omitempty"`
	GroupID       *int64  `json:"groupId,omitempty"`
	ServerGroupID *int64  `json:"serverGroupId,omitempty"`
	Title         *string `json:"title"`
	Hidden        bool    `json:"isHidden,omitempty"`
	Deleted       bool    `json:"deleted,omitempty"`
	Created       *int64  `json:"timestampCreation,omitempty"`
}

type fieldDTO struct {
	ID                 *int64  `json:"id,omitempty"`
	ServerID           *int64  `json:"serverId,omitempty"`
	UserID             *int64  `json:"userId,omitempty"`
	GroupID            *int64  `json:"groupId,omitempty"`
	ServerGroupID      *int64  `json:"serverGroupId,omitempty"`
	GroupFieldID       *int64  `json:"groupFieldId,omitempty"`
	ServerGroupFieldID *int64  `json:"serverGroupFieldId,omitempty"`
	Title              *string `json:"title"`
	Value              []byte  `json:"value,omitempty"`
	Hidden             bool    `json:"isHidden,omitempty"`
	Deleted            bool    `json:"deleted,omitempty"`
	Created            *int64  `json:"timestampCreation,omitempty"`
}

type userDTO struct {
	ID      *int64  `json:"id,omitempty"`
	Name    string  `json:"name,omitempty"`
	Email   *string `json:"email"`
	Status  *string `json:"status"`
	Updated int64   `json:"timestampLastUpdate,omitempty"`
}

type deviceDTO struct {
	ID            *int64  `json:"id,omitempty"`
	UUID          *string `json:"uuid"`
	UserID        *int64  `json:"userId,omitempty"`
	Host          string  `json:"host,omitempty"`
	HostPublicKey string  `json:"hostPublicKey,omitempty"`
	Status        *string `json:"status"`
	Updated       int64   `json:"timestampLastUpdate,omitempty"`
	Created       *int64  `json:"timestampCreation,omitempty"`
}

type envelope struct {
	TimestampLastUpdate int64           `json:"timestampLastUpdate"`
	User                userDTO         `json:"user"`
	Device              deviceDTO       `json:"device"`
	Groups              []groupDTO      `json:"groups"`
	GroupFields         []groupFieldDTO `json:"groupFields"`
	Fields              []fieldDTO      `json:"fields"`
}

func optID(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func idOrZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func strPtr(s string) *string { return &s }

func buildEnvelope(ts int64, user *model.User, dev *model.Device, pubKeyPEM string, snap *service.Snapshot, assigned *service.Assigned) envelope {
	env := envelope{
		TimestampLastUpdate: ts,
		User: userDTO{
			ID:      optID(user.ID),
			Name:    user.Name,
			Email:   strPtr(user.Email),
			Status:  strPtr(user.Status),
			Updated: user.UpdatedAt.Unix(),
		},
		Device: deviceDTO{
			ID:            optID(dev.ID),
			UUID:          strPtr(dev.UUID),
			UserID:        optID(dev.UserID),
			Host:          dev.Host,
			HostPublicKey: pubKeyPEM,
			Status:        strPtr(dev.Status),
			Updated:       dev.UpdatedAt.Unix(),
			Created:       optID(dev.CreatedAt.Unix()),
		},
		Groups:      make([]groupDTO, 0, len(snap.Groups)),
		GroupFields: make([]groupFieldDTO, 0, len(snap.GroupFields)),
		Fields:      make([]fieldDTO, 0, len(snap.Fields)),
	}

	for i := range snap.Groups {
		g := &snap.Groups[i]
		dto := groupDTO{
			ServerID:      optID(g.ID),
			UserID:        optID(g.UserID),
			ServerGroupID: optID(g.ParentID),
			Title:         strPtr(g.Title),
			Icon:          g.Icon,
			Note:          g.Note,
			Created:       optID(g.CreatedUnix),
		}
		if assigned != nil {
			dto.ID = optID(assigned.Groups[g.ID])
		}
		env.Groups = append(env.Groups, dto)
	}

	for i := range snap.GroupFields {
		f := &snap.GroupFields[i]
		dto := groupFieldDTO{
			ServerID:      optID(f.ID),
			UserID:        optID(f.UserID),
			ServerGroupID: optID(f.GroupID),
			Title:         strPtr(f.Title),
			Hidden:        f.Hidden,
			Created:       optID(f.CreatedUnix),
		}
		if assigned != nil {
			dto.ID = optID(assigned.GroupFields[f.ID])
		}
		env.GroupFields = append(env.GroupFields, dto)
	}

	for i := range snap.Fields {
		f := &snap.Fields[i]
		dto := fieldDTO{
			ServerID:           optID(f.ID),
			UserID:             optID(f.UserID),
			ServerGroupID:      optID(f.GroupID),
			ServerGroupFieldID: optID(f.GroupFieldID),
			Title:              strPtr(f.Title),
			Value:              f.Value,
			Hidden:             f.Hidden,
			Created:            optID(f.CreatedUnix),
		}
		if assigned != nil {
			dto.ID = optID(assigned.Fields[f.ID])
		}
		env.Fields = append(env.Fields, dto)
	}

	return env
}

// decodeChangeset разбирает тело push-запроса. Формат строгий: все
// шесть ключей конверта обязаны присутствовать, у каждой записи должен
// быть title. Возвращает uuid устройства из конверта для проверки
// идентичности.
func decodeChangeset(r *http.Request) (service.Changeset, string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return service.Changeset{}, "", err
	}
	var raw struct {
		TimestampLastUpdate *int64           `json:"timestampLastUpdate"`
		User                *json.RawMessage `json:"user"`
		Device              *json.RawMessage `json:"device"`
		Groups              *json.RawMessage `json:"groups"`
		GroupFields         *json.RawMessage `json:"groupFields"`
		Fields              *json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return service.Changeset{}, "", err
	}
	if raw.TimestampLastUpdate == nil || raw.User == nil || raw.Device == nil ||
		raw.Groups == nil || raw.GroupFields == nil || raw.Fields == nil {
		return service.Changeset{}, "", errors.New("envelope key missing")
	}

	var dev deviceDTO
	if err := json.Unmarshal(*raw.Device, &dev); err != nil {
		return service.Changeset{}, "", err
	}
	if dev.UUID == nil || *dev.UUID == "" {
		return service.Changeset{}, "", errors.New("device uuid missing")
	}

	var groups []groupDTO
	if err := json.Unmarshal(*raw.Groups, &groups); err != nil {
		return service.Changeset{}, "", err
	}
	var groupFields []groupFieldDTO
	if err := json.Unmarshal(*raw.GroupFields, &groupFields); err != nil {
		return service.Changeset{}, "", err
	}
	var fields []fieldDTO
	if err := json.Unmarshal(*raw.Fields, &fields); err != nil {
		return service.Changeset{}, "", err
	}

	var cs service.Changeset
	for _, dto := range groups {
		if dto.Title == nil {
			return service.Changeset{}, "", errors.New("group title missing")
		}
		cs.Groups = append(cs.Groups, service.GroupIn{
			ClientID:       idOrZero(dto.ID),
			ClientParentID: idOrZero(dto.GroupID),
			Entity: model.Group{
				ID:          idOrZero(dto.ServerID),
				ParentID:    idOrZero(dto.ServerGroupID),
				Title:       *dto.Title,
				Icon:        dto.Icon,
				Note:        dto.Note,
				Deleted:     dto.Deleted,
				CreatedUnix: idOrZero(dto.Created),
			},
		})
	}
	for _, dto := range groupFields {
		if dto.Title == nil {
			return service.Changeset{}, "", errors.New("group field title missing")
		}
		cs.GroupFields = append(cs.GroupFields, service.GroupFieldIn{
			ClientID:      idOrZero(dto.ID),
			ClientGroupID: idOrZero(dto.GroupID),
			Entity: model.GroupField{
				ID:          idOrZero(dto.ServerID),
				GroupID:     idOrZero(dto.ServerGroupID),
				Title:       *dto.Title,
				Hidden:      dto.Hidden,
				Deleted:     dto.Deleted,
				CreatedUnix: idOrZero(dto.Created),
			},
		})
	}
	for _, dto := range fields {
		if dto.Title == nil {
			return service.Changeset{}, "", errors.New("field title missing")
		}
		cs.Fields = append(cs.Fields, service.FieldIn{
			ClientID:           idOrZero(dto.ID),
			ClientGroupID:      idOrZero(dto.GroupID),
			ClientGroupFieldID: idOrZero(dto.GroupFieldID),
			Entity: model.Field{
				ID:           idOrZero(dto.ServerID),
				GroupID:      idOrZero(dto.ServerGroupID),
				GroupFieldID: idOrZero(dto.ServerGroupFieldID),
				Title:        *dto.Title,
				Value:        dto.Value,
				Hidden:       dto.Hidden,
				Deleted:      dto.Deleted,
				CreatedUnix:  idOrZero(dto.Created),
			},
		})
	}

	return cs, *dev.UUID, nil
}
