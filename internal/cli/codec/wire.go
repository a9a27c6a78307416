package codec

import (
	"fmt"

	"PassVault/internal/cli/common"
	"PassVault/internal/cli/model"
)

// Wire-DTO сущностей: ключи в camelCase, числовые id — указатели, чтобы
// в create-варианте (id ещё не присвоен) ключ опускался целиком, а не
// сериализовался как null.

type groupDTO struct {
	ID            *int64  `json:"id,omitempty"`
	ServerID      *int64  `json:"serverId,omitempty"`
	UserID        *int64  `json:"userId,omitempty"`
	GroupID       *int64  `json:"groupId,omitempty"`       // локальный id родителя
	ServerGroupID *int64  `json:"serverGroupId,omitempty"` // серверный id родителя
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

// optID возвращает указатель для положительного id и nil для нулевого.
func optID(v int64) *int64 {
	if v == 0 {
		return nil
	}
	p := v
	return &p
}

func idOrZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func groupToDTO(g *model.Group) groupDTO {
	title := g.Title
	return groupDTO{
		ID:            optID(g.ID),
		ServerID:      optID(g.ServerID),
		UserID:        optID(g.UserID),
		GroupID:       optID(g.ParentID),
		ServerGroupID: optID(g.ServerParentID),
		Title:         &title,
		Icon:          g.Icon,
		Note:          g.Note,
		Deleted:       g.Deleted,
		Created:       optID(g.CreatedAt),
	}
}

func (d groupDTO) toModel() (*model.Group, error) {
	if d.Title == nil {
		return nil, fmt.Errorf("%w: group without title", common.ErrMalformedPayload)
	}
	return &model.Group{
		Meta: model.Meta{
			ID:        idOrZero(d.ID),
			ServerID:  idOrZero(d.ServerID),
			UserID:    idOrZero(d.UserID),
			Synced:    true, // записи из серверного среза считаются синхронизированными
			Deleted:   d.Deleted,
			CreatedAt: idOrZero(d.Created),
		},
		ParentID:       idOrZero(d.GroupID),
		ServerParentID: idOrZero(d.ServerGroupID),
		Title:          *d.Title,
		Icon:           d.Icon,
		Note:           d.Note,
	}, nil
}

func groupFieldToDTO(f *model.GroupField) groupFieldDTO {
	title := f.Title
	return groupFieldDTO{
		ID:            optID(f.ID),
		ServerID:      optID(f.ServerID),
		UserID:        optID(f.UserID),
		GroupID:       optID(f.GroupID),
		ServerGroupID: optID(f.ServerGroupID),
		Title:         &title,
		Hidden:        f.Hidden,
		Deleted:       f.Deleted,
		Created:       optID(f.CreatedAt),
	}
}

func (d groupFieldDTO) toModel() (*model.GroupField, error) {
	if d.Title == nil {
		return nil, fmt.Errorf("%w: groupField without title", common.ErrMalformedPayload)
	}
	return &model.GroupField{
		Meta: model.Meta{
			ID:        idOrZero(d.ID),
			ServerID:  idOrZero(d.ServerID),
			UserID:    idOrZero(d.UserID),
			Synced:    true,
			Deleted:   d.Deleted,
			CreatedAt: idOrZero(d.Created),
		},
		GroupID:       idOrZero(d.GroupID),
		ServerGroupID: idOrZero(d.ServerGroupID),
		Title:         *d.Title,
		Hidden:        d.Hidden,
	}, nil
}

func fieldToDTO(f *model.Field) fieldDTO {
	title := f.Title
	return fieldDTO{
		ID:                 optID(f.ID),
		ServerID:           optID(f.ServerID),
		UserID:             optID(f.UserID),
		GroupID:            optID(f.GroupID),
		ServerGroupID:      optID(f.ServerGroupID),
		GroupFieldID:       optID(f.GroupFieldID),
		ServerGroupFieldID: optID(f.ServerGroupFieldID),
		Title:              &title,
		Value:              f.Value,
		Hidden:             f.Hidden,
		Deleted:            f.Deleted,
		Created:            optID(f.CreatedAt),
	}
}

func (d fieldDTO) toModel() (*model.Field, error) {
	if d.Title == nil {
		return nil, fmt.Errorf("%w: field without title", common.ErrMalformedPayload)
	}
	return &model.Field{
		Meta: model.Meta{
			ID:        idOrZero(d.ID),
			ServerID:  idOrZero(d.ServerID),
			UserID:    idOrZero(d.UserID),
			Synced:    true,
			Deleted:   d.Deleted,
			CreatedAt: idOrZero(d.Created),
		},
		GroupID:            idOrZero(d.GroupID),
		ServerGroupID:      idOrZero(d.ServerGroupID),
		GroupFieldID:       idOrZero(d.GroupFieldID),
		ServerGroupFieldID: idOrZero(d.ServerGroupFieldID),
		Title:              *d.Title,
		Value:              d.Value,
		Hidden:             d.Hidden,
	}, nil
}

func userToDTO(u *model.User) userDTO {
	email := u.Email
	status := string(u.Status)
	return userDTO{
		ID:      optID(u.ID),
		Name:    u.Name,
		Email:   &email,
		Status:  &status,
		Updated: u.UpdatedAt,
	}
}

func (d userDTO) toModel() (*model.User, error) {
	if d.Email == nil || d.Status == nil {
		return nil, fmt.Errorf("%w: user without email/status", common.ErrMalformedPayload)
	}
	return &model.User{
		ID:        idOrZero(d.ID),
		Name:      d.Name,
		Email:     *d.Email,
		Status:    model.UserStatus(*d.Status),
		UpdatedAt: d.Updated,
	}, nil
}

func deviceToDTO(d *model.Device) deviceDTO {
	uuid := d.UUID
	status := string(d.Status)
	return deviceDTO{
		ID:            optID(d.ID),
		UUID:          &uuid,
		Host:          d.Host,
		HostPublicKey: d.HostPublicKey,
		Status:        &status,
		Updated:       d.UpdatedAt,
		Created:       optID(d.CreatedAt),
	}
}

func (d deviceDTO) toModel() (*model.Device, error) {
	if d.UUID == nil || d.Status == nil {
		return nil, fmt.Errorf("%w: device without uuid/status", common.ErrMalformedPayload)
	}
	return &model.Device{
		ID:            idOrZero(d.ID),
		UUID:          *d.UUID,
		Host:          d.Host,
		HostPublicKey: d.HostPublicKey,
		Status:        model.DeviceStatus(*d.Status),
		UpdatedAt:     d.Updated,
		CreatedAt:     idOrZero(d.Created),
	}, nil
}
