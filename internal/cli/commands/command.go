package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"PassVault/internal/config"
)

// ErrUsage возвращается командой при неверных аргументах; диспетчер
// печатает usage вместо текста ошибки.
var ErrUsage = errors.New("usage")

// Command — CLI-подкоманда.
type Command interface {
	// Name — имя команды, как его набирает пользователь, например "login".
	Name() string
	// Description — короткое описание для help.
	Description() string
	// Usage — точная строка использования, например "login <email> <password>".
	Usage() string
	// Run выполняет команду; args идут без имени самой команды.
	Run(ctx context.Context, cfg *config.Config, args []string) error
}

// Out — общий writer для вывода CLI. По умолчанию os.Stdout, но в тестах может переназначаться.
var Out io.Writer = os.Stdout

var registry = map[string]Command{}

// RegisterCmd добавляет команду в реестр; вызывается из init() каждой команды.
func RegisterCmd(cmd Command) {
	registry[cmd.Name()] = cmd
}

// Get возвращает команду по имени.
func Get(name string) (Command, bool) {
	c, ok := registry[name]
	return c, ok
}

// List возвращает все команды, отсортированные по имени.
func List() []Command {
	out := make([]Command, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// FormatGlobalUsage собирает общий help по всем командам.
func FormatGlobalUsage() string {
	var b strings.Builder
	b.WriteString("PassVault CLI\n\n")
	b.WriteString("Usage:\n")
	b.WriteString("  pvcli [--base-url <host:port>] [--device <uuid>] <command> [args]\n\n")
	b.WriteString("Commands:\n")
	for _, c := range List() {
		fmt.Fprintf(&b, "  %-34s %s\n", c.Usage(), c.Description())
	}
	return b.String()
}
