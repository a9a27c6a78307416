package model

// Group — узел иерархического дерева записей. ParentID == 0 означает корень.
type Group struct {
	Meta
	ParentID       int64 // локальный id родительской группы; 0 = корень
	ServerParentID int64 // серверный id родительской группы; 0 = ещё не известен
	Title          string
	Icon           string
	Note           string
}

// GroupField — описание поля, общего для всех записей группы.
type GroupField struct {
	Meta
	GroupID       int64 // локальный id группы-родителя
	ServerGroupID int64
	Title         string
	Hidden        bool
}

// Field — значение поля записи. Value хранится зашифрованным (AES-GCM).
type Field struct {
	Meta
	GroupID            int64
	ServerGroupID      int64
	GroupFieldID       int64 // локальный id описания поля; 0 = свободное поле
	ServerGroupFieldID int64
	Title              string
	Value              []byte // шифртекст; расшифровывается только по запросу
	Hidden             bool
}
