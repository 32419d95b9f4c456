// Etiquette
// Copyright (c) 2026 The Etiquette Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Etiquette.
//
// Etiquette is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Etiquette is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Etiquette.  If not, see <http://www.gnu.org/licenses/>.

package database

import "fmt"

// Error is a catalog error carrying a stable string code for API mapping and
// a formatted human message. Two Errors compare equal under errors.Is when
// their codes match, so engines can return instance errors with specific
// messages while callers match against the exported sentinels below.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is matching. Engines return formatted instances via
// the constructors below.
var (
	ErrNoSuchAlbum    = &Error{Code: "NO_SUCH_ALBUM"}
	ErrNoSuchBookmark = &Error{Code: "NO_SUCH_BOOKMARK"}
	ErrNoSuchGroup    = &Error{Code: "NO_SUCH_GROUP"}
	ErrNoSuchPhoto    = &Error{Code: "NO_SUCH_PHOTO"}
	ErrNoSuchSynonym  = &Error{Code: "NO_SUCH_SYNONYM"}
	ErrNoSuchTag      = &Error{Code: "NO_SUCH_TAG"}
	ErrNoSuchUser     = &Error{Code: "NO_SUCH_USER"}

	ErrGroupExists     = &Error{Code: "GROUP_EXISTS"}
	ErrPhotoExists     = &Error{Code: "PHOTO_EXISTS"}
	ErrTagExists       = &Error{Code: "TAG_EXISTS"}
	ErrUserExists      = &Error{Code: "USER_EXISTS"}
	ErrAlreadySignedIn = &Error{Code: "ALREADY_SIGNED_IN"}

	ErrTagTooShort          = &Error{Code: "TAG_TOO_SHORT"}
	ErrTagTooLong           = &Error{Code: "TAG_TOO_LONG"}
	ErrCantSynonymSelf      = &Error{Code: "CANT_SYNONYM_SELF"}
	ErrRecursiveGrouping    = &Error{Code: "RECURSIVE_GROUPING"}
	ErrInvalidUsernameChars = &Error{Code: "INVALID_USERNAME_CHARS"}
	ErrUsernameTooShort     = &Error{Code: "USERNAME_TOO_SHORT"}
	ErrUsernameTooLong      = &Error{Code: "USERNAME_TOO_LONG"}
	ErrPasswordTooShort     = &Error{Code: "PASSWORD_TOO_SHORT"}
	ErrOutOfOrder           = &Error{Code: "OUT_OF_ORDER"}
	ErrNotExclusive         = &Error{Code: "NOT_EXCLUSIVE"}
	ErrNoYields             = &Error{Code: "NO_YIELDS"}

	ErrWrongLogin = &Error{Code: "WRONG_LOGIN"}

	ErrFeatureDisabled   = &Error{Code: "FEATURE_DISABLED"}
	ErrDatabaseOutOfDate = &Error{Code: "DATABASE_OUT_OF_DATE"}
	ErrBadTable          = &Error{Code: "BAD_TABLE"}
)

func NoSuchAlbum(ref any) *Error {
	return newError(ErrNoSuchAlbum.Code, "album %v does not exist", ref)
}

func NoSuchBookmark(ref any) *Error {
	return newError(ErrNoSuchBookmark.Code, "bookmark %v does not exist", ref)
}

func NoSuchGroup(parent, member any) *Error {
	return newError(ErrNoSuchGroup.Code, "%v is not a member of %v", member, parent)
}

func NoSuchPhoto(ref any) *Error {
	return newError(ErrNoSuchPhoto.Code, "photo %v does not exist", ref)
}

func NoSuchSynonym(name string) *Error {
	return newError(ErrNoSuchSynonym.Code, "synonym %q does not exist", name)
}

func NoSuchTag(ref any) *Error {
	return newError(ErrNoSuchTag.Code, "tag %v does not exist", ref)
}

func NoSuchUser(ref any) *Error {
	return newError(ErrNoSuchUser.Code, "user %v does not exist", ref)
}

func GroupExists(parent, member string) *Error {
	return newError(ErrGroupExists.Code, "%q already belongs to a group (%q)", member, parent)
}

func PhotoExists(path string) *Error {
	return newError(ErrPhotoExists.Code, "a photo for %q already exists", path)
}

func TagExists(name string) *Error {
	return newError(ErrTagExists.Code, "tag %q already exists", name)
}

func UserExists(username string) *Error {
	return newError(ErrUserExists.Code, "user %q already exists", username)
}

func AlreadySignedIn() *Error {
	return newError(ErrAlreadySignedIn.Code, "already signed in")
}

func TagTooShort(name string, minLength int) *Error {
	return newError(ErrTagTooShort.Code, "tag %q is shorter than the minimum of %d", name, minLength)
}

func TagTooLong(name string, maxLength int) *Error {
	return newError(ErrTagTooLong.Code, "tag %q is longer than the maximum of %d", name, maxLength)
}

func CantSynonymSelf(name string) *Error {
	return newError(ErrCantSynonymSelf.Code, "cannot make %q a synonym of itself", name)
}

func RecursiveGrouping(parent, member string) *Error {
	return newError(ErrRecursiveGrouping.Code, "grouping %q under %q would create a cycle", member, parent)
}

func InvalidUsernameChars(username string) *Error {
	return newError(ErrInvalidUsernameChars.Code, "username %q contains invalid characters", username)
}

func UsernameTooShort(username string, minLength int) *Error {
	return newError(ErrUsernameTooShort.Code, "username %q is shorter than the minimum of %d", username, minLength)
}

func UsernameTooLong(username string, maxLength int) *Error {
	return newError(ErrUsernameTooLong.Code, "username %q is longer than the maximum of %d", username, maxLength)
}

func PasswordTooShort(minLength int) *Error {
	return newError(ErrPasswordTooShort.Code, "password is shorter than the minimum of %d", minLength)
}

func OutOfOrder(rangeName string, low, high any) *Error {
	return newError(ErrOutOfOrder.Code, "range %q: minimum %v is greater than maximum %v", rangeName, low, high)
}

func NotExclusive(args ...string) *Error {
	return newError(ErrNotExclusive.Code, "exactly one of %v must be given", args)
}

func NoYields() *Error {
	return newError(ErrNoYields.Code, "at least one of yield_albums, yield_photos must be set")
}

func WrongLogin() *Error {
	return newError(ErrWrongLogin.Code, "wrong username or password")
}

func FeatureDisabled(features ...string) *Error {
	return newError(ErrFeatureDisabled.Code, "feature %v is disabled by configuration", features)
}

func DatabaseOutOfDate(current, expected int) *Error {
	return newError(ErrDatabaseOutOfDate.Code,
		"database version %d does not match the code's version %d", current, expected)
}

func BadTable(table string) *Error {
	return newError(ErrBadTable.Code, "%q is not a known table", table)
}
