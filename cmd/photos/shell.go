package main

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/export"
	"github.com/kimhsiao/photolib/backend/internal/library"
	"github.com/kimhsiao/photolib/backend/internal/logging"
	"github.com/kimhsiao/photolib/backend/internal/media"
	"github.com/kimhsiao/photolib/backend/internal/models"
	"github.com/kimhsiao/photolib/backend/internal/search"
)

const (
	promptStr     = "photos> "
	welcomeMsg    = "Photo library shell. Type 'help' for commands."
	unknownCmdMsg = "Unknown command. Type 'help' for commands."
	dateLayout    = "2006-01-02 15:04:05"
)

const helpMsg = `Session:
  login <username>              log in (use 'admin' for user management)
  logout                        save everything and log out
  users                         list usernames
  adduser <username>            create a user (admin)
  deluser <username>            delete a user (admin)
  importlib <archive>           restore a user from an export archive (admin)
Albums:
  albums                        list albums with photo counts and date ranges
  mkalbum <name>                create an album
  rmalbum <name>                delete an album
  mvalbum <old> <new>           rename an album
  photos <album>                list an album's photos
Photos:
  import <album> <file>...      add image files to an album
  remove <album> <path>         remove a photo from an album
  copy <path> <from> <to>       copy a photo to another album
  move <path> <from> <to>       move a photo to another album
  caption <path> <text>         set a photo's caption
  tag <path> <type> <value>     tag a photo
  untag <path> <type> <value>   remove a tag
  tagtypes                      list tag types
  addtagtype <type>             add a tag type
Search:
  find-date <from> <to>         photos taken between two YYYY-MM-DD dates
  find-tag <type> <value>       photos with a tag
  find-and <t1> <v1> <t2> <v2>  photos with both tags
  find-or <t1> <v1> <t2> <v2>   photos with either tag
  save-results <album>          save the last search results as an album
Other:
  export [path]                 write your library to an archive
  help                          show this help
  exit                          save and quit
Quote arguments that contain spaces: mkalbum "Summer 2023"`

// Shell is the interactive front end over one library.
type Shell struct {
	lib      *library.Library
	engine   *search.Engine
	archiver *export.Archiver
	in       io.Reader
	out      io.Writer

	// Results of the most recent search
	results []*models.Photo
}

// NewShell creates a shell reading commands from in and writing to out.
func NewShell(lib *library.Library, engine *search.Engine, archiver *export.Archiver, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		lib:      lib,
		engine:   engine,
		archiver: archiver,
		in:       in,
		out:      out,
	}
}

// Run reads commands until exit or end of input. The caller performs the
// final save.
func (s *Shell) Run() {
	fmt.Fprintln(s.out, welcomeMsg)

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, promptStr)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return
		}

		parts, err := splitArgs(scanner.Text())
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			continue
		}
		if len(parts) == 0 {
			continue
		}
		if strings.ToLower(parts[0]) == "exit" {
			return
		}
		s.dispatch(strings.ToLower(parts[0]), parts[1:])
	}
}

type command struct {
	usage   string
	minArgs int
	run     func(s *Shell, args []string) error
}

var commands = map[string]command{
	"login":        {"login <username>", 1, (*Shell).cmdLogin},
	"logout":       {"logout", 0, (*Shell).cmdLogout},
	"users":        {"users", 0, (*Shell).cmdUsers},
	"adduser":      {"adduser <username>", 1, (*Shell).cmdAddUser},
	"deluser":      {"deluser <username>", 1, (*Shell).cmdDelUser},
	"importlib":    {"importlib <archive>", 1, (*Shell).cmdImportLib},
	"albums":       {"albums", 0, (*Shell).cmdAlbums},
	"mkalbum":      {"mkalbum <name>", 1, (*Shell).cmdMkAlbum},
	"rmalbum":      {"rmalbum <name>", 1, (*Shell).cmdRmAlbum},
	"mvalbum":      {"mvalbum <old> <new>", 2, (*Shell).cmdMvAlbum},
	"photos":       {"photos <album>", 1, (*Shell).cmdPhotos},
	"import":       {"import <album> <file>...", 2, (*Shell).cmdImport},
	"remove":       {"remove <album> <path>", 2, (*Shell).cmdRemove},
	"copy":         {"copy <path> <from> <to>", 3, (*Shell).cmdCopy},
	"move":         {"move <path> <from> <to>", 3, (*Shell).cmdMove},
	"caption":      {"caption <path> <text>", 2, (*Shell).cmdCaption},
	"tag":          {"tag <path> <type> <value>", 3, (*Shell).cmdTag},
	"untag":        {"untag <path> <type> <value>", 3, (*Shell).cmdUntag},
	"tagtypes":     {"tagtypes", 0, (*Shell).cmdTagTypes},
	"addtagtype":   {"addtagtype <type>", 1, (*Shell).cmdAddTagType},
	"find-date":    {"find-date <from> <to>", 2, (*Shell).cmdFindDate},
	"find-tag":     {"find-tag <type> <value>", 2, (*Shell).cmdFindTag},
	"find-and":     {"find-and <t1> <v1> <t2> <v2>", 4, (*Shell).cmdFindAnd},
	"find-or":      {"find-or <t1> <v1> <t2> <v2>", 4, (*Shell).cmdFindOr},
	"save-results": {"save-results <album>", 1, (*Shell).cmdSaveResults},
	"export":       {"export [path]", 0, (*Shell).cmdExport},
	"help":         {"help", 0, (*Shell).cmdHelp},
}

func (s *Shell) dispatch(name string, args []string) {
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintln(s.out, unknownCmdMsg)
		return
	}
	if len(args) < cmd.minArgs {
		fmt.Fprintf(s.out, "Usage: %s\n", cmd.usage)
		return
	}
	if err := cmd.run(s, args); err != nil {
		logging.Debug("Command failed", map[string]interface{}{
			"command": name,
			"code":    string(errors.CodeOf(err)),
			"error":   err.Error(),
		})
		fmt.Fprintf(s.out, "Error: %s\n", describe(err))
	}
}

// describe turns an error into a line for the user. AppErrors show their
// messages without codes; the codes are for logs.
func describe(err error) string {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return err.Error()
	}
	if appErr.Err == nil {
		return appErr.Message
	}
	return appErr.Message + ": " + describe(appErr.Err)
}

// save persists after a mutation. A failed save leaves memory as is.
func (s *Shell) save() error {
	if err := s.lib.SaveAll(); err != nil {
		logging.Error("Save failed", err)
		return errors.Wrap(errors.ErrStorageWrite, "changes kept in memory but not saved", err)
	}
	return nil
}

func (s *Shell) requireAdmin() error {
	if !s.lib.IsAdminSession() {
		return errors.New(errors.ErrPermission, "log in as admin first")
	}
	return nil
}

func (s *Shell) album(u *models.User, name string) (*models.Album, error) {
	a := u.Album(name)
	if a == nil {
		return nil, errors.Newf(errors.ErrNotFound, "no album %q", name)
	}
	return a, nil
}

func (s *Shell) photo(u *models.User, path string) (*models.Photo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, "resolve path", err)
	}
	p := u.Photo(abs)
	if p == nil {
		return nil, errors.Newf(errors.ErrNotFound, "no photo %q", abs)
	}
	return p, nil
}

func (s *Shell) cmdHelp(args []string) error {
	fmt.Fprintln(s.out, helpMsg)
	return nil
}

func (s *Shell) cmdLogin(args []string) error {
	if err := s.lib.Authenticate(args[0]); err != nil {
		return err
	}
	s.results = nil
	fmt.Fprintf(s.out, "Logged in as %s\n", args[0])
	return nil
}

func (s *Shell) cmdLogout(args []string) error {
	s.results = nil
	if err := s.lib.Logout(); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "logged out but not everything was saved", err)
	}
	fmt.Fprintln(s.out, "Logged out")
	return nil
}

func (s *Shell) cmdUsers(args []string) error {
	for _, name := range s.lib.Usernames() {
		marker := ""
		if s.lib.User(name) == nil {
			marker = " (unavailable)"
		}
		fmt.Fprintf(s.out, "  %s%s\n", name, marker)
	}
	return nil
}

func (s *Shell) cmdAddUser(args []string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if _, err := s.lib.CreateUser(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Created user %s\n", args[0])
	return nil
}

func (s *Shell) cmdDelUser(args []string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if err := s.lib.DeleteUser(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Deleted user %s\n", args[0])
	return nil
}

func (s *Shell) cmdImportLib(args []string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	result, err := s.archiver.Import(args[0])
	if err != nil {
		return err
	}
	if err := s.lib.ImportUser(result.User); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Imported user %s (%d albums, %d photos)\n",
		result.User.Username(), result.Manifest.AlbumCount, result.Manifest.PhotoCount)
	return nil
}

func (s *Shell) cmdAlbums(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	albums := u.Albums()
	if len(albums) == 0 {
		fmt.Fprintln(s.out, "No albums")
		return nil
	}
	for _, a := range albums {
		fmt.Fprintf(s.out, "  %s  %d photo(s)%s\n", a.Name(), a.PhotoCount(), s.dateRange(a))
	}
	return nil
}

func (s *Shell) dateRange(a *models.Album) string {
	earliest, ok := a.EarliestDate()
	if !ok {
		return ""
	}
	latest, _ := a.LatestDate()
	loc := s.engine.Location()
	return fmt.Sprintf("  %s to %s", earliest.In(loc).Format("2006-01-02"), latest.In(loc).Format("2006-01-02"))
}

func (s *Shell) cmdMkAlbum(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	if u.Album(args[0]) != nil {
		return errors.Newf(errors.ErrDuplicate, "album %q already exists", args[0])
	}
	if _, ok := u.CreateAlbum(args[0]); !ok {
		return errors.New(errors.ErrInvalid, "album name is blank or not valid UTF-8")
	}
	fmt.Fprintf(s.out, "Created album %s\n", args[0])
	return s.save()
}

func (s *Shell) cmdRmAlbum(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	if !u.DeleteAlbum(args[0]) {
		return errors.Newf(errors.ErrNotFound, "no album %q", args[0])
	}
	fmt.Fprintf(s.out, "Deleted album %s\n", args[0])
	return s.save()
}

func (s *Shell) cmdMvAlbum(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	oldName, newName := args[0], args[1]
	if u.Album(oldName) == nil {
		return errors.Newf(errors.ErrNotFound, "no album %q", oldName)
	}
	if strings.TrimSpace(newName) == "" {
		return errors.New(errors.ErrInvalid, "new album name is blank")
	}
	if u.Album(newName) != nil {
		return errors.Newf(errors.ErrDuplicate, "album %q already exists", newName)
	}
	if !u.RenameAlbum(oldName, newName) {
		return errors.Newf(errors.ErrInvalid, "cannot rename %q to %q", oldName, newName)
	}
	fmt.Fprintf(s.out, "Renamed %s to %s\n", oldName, newName)
	return s.save()
}

func (s *Shell) cmdPhotos(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	a, err := s.album(u, args[0])
	if err != nil {
		return err
	}
	s.printPhotos(a.Photos())
	return nil
}

func (s *Shell) printPhotos(photos []*models.Photo) {
	if len(photos) == 0 {
		fmt.Fprintln(s.out, "No photos")
		return
	}
	loc := s.engine.Location()
	for i, p := range photos {
		fmt.Fprintf(s.out, "%3d. %s\n     %q  %s\n", i+1, p.FilePath(), p.Caption(), p.DateTime().In(loc).Format(dateLayout))
		for _, t := range p.Tags() {
			fmt.Fprintf(s.out, "     %s\n", t)
		}
	}
}

func (s *Shell) cmdImport(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	a, err := s.album(u, args[0])
	if err != nil {
		return err
	}

	added := 0
	for _, file := range args[1:] {
		info, err := media.Inspect(file)
		if err != nil {
			fmt.Fprintf(s.out, "Skipped %s: %s\n", file, describe(err))
			continue
		}
		p, err := s.lib.ImportPhoto(info.Path, info.ModTime)
		if err != nil {
			fmt.Fprintf(s.out, "Skipped %s: %s\n", file, describe(err))
			continue
		}
		if !a.AddPhoto(p) {
			fmt.Fprintf(s.out, "Skipped %s: already in %s\n", file, a.Name())
			continue
		}
		added++
	}
	fmt.Fprintf(s.out, "Added %d photo(s) to %s\n", added, a.Name())
	if added == 0 {
		return nil
	}
	return s.save()
}

func (s *Shell) cmdRemove(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	a, err := s.album(u, args[0])
	if err != nil {
		return err
	}
	p, err := s.photo(u, args[1])
	if err != nil {
		return err
	}
	if !a.RemovePhoto(p) {
		return errors.Newf(errors.ErrNotFound, "%s is not in %s", p.FilePath(), a.Name())
	}
	fmt.Fprintf(s.out, "Removed %s from %s\n", p.FilePath(), a.Name())
	return s.save()
}

func (s *Shell) transfer(args []string, move bool) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	p, err := s.photo(u, args[0])
	if err != nil {
		return err
	}
	from, to := args[1], args[2]
	if _, err := s.album(u, from); err != nil {
		return err
	}
	if _, err := s.album(u, to); err != nil {
		return err
	}

	verb := "Copied"
	ok := false
	if move {
		verb = "Moved"
		ok = u.MovePhoto(p, from, to)
	} else {
		ok = u.CopyPhoto(p, from, to)
	}
	if !ok {
		return errors.Newf(errors.ErrDuplicate, "%s must be in %s and not already in %s", p.FilePath(), from, to)
	}
	fmt.Fprintf(s.out, "%s %s to %s\n", verb, p.FilePath(), to)
	return s.save()
}

func (s *Shell) cmdCopy(args []string) error {
	return s.transfer(args, false)
}

func (s *Shell) cmdMove(args []string) error {
	return s.transfer(args, true)
}

func (s *Shell) cmdCaption(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	p, err := s.photo(u, args[0])
	if err != nil {
		return err
	}
	if !p.SetCaption(strings.Join(args[1:], " ")) {
		return errors.New(errors.ErrInvalid, "caption is not valid UTF-8")
	}
	fmt.Fprintf(s.out, "Caption set for %s\n", p.FilePath())
	return s.save()
}

// tagArgs resolves <path> <type> <value>. The type must be one of the
// user's tag types.
func (s *Shell) tagArgs(args []string) (*models.Photo, models.Tag, error) {
	u, err := s.lib.RequireUser()
	if err != nil {
		return nil, models.Tag{}, err
	}
	p, err := s.photo(u, args[0])
	if err != nil {
		return nil, models.Tag{}, err
	}
	tag := models.NewTag(args[1], strings.Join(args[2:], " "))
	if !tag.Valid() {
		return nil, models.Tag{}, errors.Newf(errors.ErrInvalid, "tag %q is blank or not valid UTF-8", tag.String())
	}
	known := false
	for _, t := range u.TagTypes() {
		if t == tag.Name {
			known = true
			break
		}
	}
	if !known {
		return nil, models.Tag{}, errors.Newf(errors.ErrInvalid, "unknown tag type %q (see 'tagtypes')", tag.Name)
	}
	return p, tag, nil
}

func (s *Shell) cmdTag(args []string) error {
	p, tag, err := s.tagArgs(args)
	if err != nil {
		return err
	}
	if !p.AddTag(tag) {
		return errors.Newf(errors.ErrDuplicate, "cannot add tag %q", tag.String())
	}
	fmt.Fprintf(s.out, "Tagged %s with %s\n", p.FilePath(), tag)
	return s.save()
}

func (s *Shell) cmdUntag(args []string) error {
	p, tag, err := s.tagArgs(args)
	if err != nil {
		return err
	}
	if !p.RemoveTag(tag) {
		return errors.Newf(errors.ErrNotFound, "%s has no tag %q", p.FilePath(), tag.String())
	}
	fmt.Fprintf(s.out, "Removed %s from %s\n", tag, p.FilePath())
	return s.save()
}

func (s *Shell) cmdTagTypes(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	for _, t := range u.TagTypes() {
		fmt.Fprintf(s.out, "  %s\n", t)
	}
	return nil
}

func (s *Shell) cmdAddTagType(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	if !u.AddTagType(args[0]) {
		return errors.Newf(errors.ErrDuplicate, "tag type %q is blank or exists", args[0])
	}
	fmt.Fprintf(s.out, "Added tag type %s\n", args[0])
	return s.save()
}

func (s *Shell) showResults(photos []*models.Photo, err error) error {
	if err != nil {
		return err
	}
	s.results = photos
	fmt.Fprintf(s.out, "Found %d photo(s)\n", len(photos))
	s.printPhotos(photos)
	return nil
}

func (s *Shell) cmdFindDate(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	from, err := search.ParseDate(args[0])
	if err != nil {
		return err
	}
	to, err := search.ParseDate(args[1])
	if err != nil {
		return err
	}
	return s.showResults(s.engine.ByDateRange(u, from, to))
}

func (s *Shell) cmdFindTag(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	return s.showResults(s.engine.ByTag(u, models.NewTag(args[0], strings.Join(args[1:], " "))))
}

func (s *Shell) cmdFindAnd(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	return s.showResults(s.engine.ByBothTags(u, models.NewTag(args[0], args[1]), models.NewTag(args[2], args[3])))
}

func (s *Shell) cmdFindOr(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	return s.showResults(s.engine.ByEitherTag(u, models.NewTag(args[0], args[1]), models.NewTag(args[2], args[3])))
}

func (s *Shell) cmdSaveResults(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	album, err := search.SaveAsAlbum(u, args[0], s.results)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %d photo(s) to %s\n", album.PhotoCount(), album.Name())
	return s.save()
}

func (s *Shell) cmdExport(args []string) error {
	u, err := s.lib.RequireUser()
	if err != nil {
		return err
	}
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	result, err := s.archiver.Export(u, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Exported %d album(s) to %s\n", result.AlbumCount, result.FilePath)
	return nil
}

// splitArgs splits a command line on spaces, keeping double-quoted runs
// together.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		inArg   bool
	)
	// Bytes, not runes: file names need not be UTF-8.
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			quoted = !quoted
			inArg = true
		case !quoted && (c == ' ' || c == '\t'):
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteByte(c)
			inArg = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
