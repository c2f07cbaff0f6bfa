package auth

// SuperadminRole is the name of the protected role seeded at bootstrap.
const SuperadminRole = "superadmin"

// Privilege codes. Role and privilege management codes are seeded as essential.
const (
	PrivUsersRead   = "users.read"
	PrivUsersCreate = "users.create"
	PrivUsersUpdate = "users.update"
	PrivUsersDelete = "users.delete"

	PrivRolesRead   = "roles.read"
	PrivRolesCreate = "roles.create"
	PrivRolesUpdate = "roles.update"
	PrivRolesDelete = "roles.delete"

	PrivPrivilegesRead   = "privileges.read"
	PrivPrivilegesCreate = "privileges.create"
	PrivPrivilegesUpdate = "privileges.update"
	PrivPrivilegesDelete = "privileges.delete"

	PrivPostsRead        = "posts.read"
	PrivPostsWrite       = "posts.write"
	PrivPostsPublish     = "posts.publish"
	PrivCommentsModerate = "comments.moderate"
	PrivMediaUpload      = "media.upload"
	PrivTagsManage       = "tags.manage"

	PrivCaptchaTokensIssue = "captcha.tokens.issue"
)

var moduleDisplayNames = map[string]string{
	"users":      "User Management",
	"roles":      "Role Management",
	"privileges": "Privilege Management",
	"posts":      "Posts",
	"comments":   "Comments",
	"media":      "Media",
	"tags":       "Tags",
	"captcha":    "CAPTCHA",
}

// ModuleDisplayName returns the human label for a module, or the module itself.
func ModuleDisplayName(module string) string {
	if name, ok := moduleDisplayNames[module]; ok {
		return name
	}
	return module
}

// BuiltinPrivileges is the catalog seeded by Bootstrap.
var BuiltinPrivileges = []Privilege{
	{Code: PrivUsersRead, Name: "View users", Module: "users"},
	{Code: PrivUsersCreate, Name: "Create users", Module: "users"},
	{Code: PrivUsersUpdate, Name: "Edit users", Module: "users"},
	{Code: PrivUsersDelete, Name: "Delete users", Module: "users"},

	{Code: PrivRolesRead, Name: "View roles", Module: "roles", Essential: true},
	{Code: PrivRolesCreate, Name: "Create roles", Module: "roles", Essential: true},
	{Code: PrivRolesUpdate, Name: "Edit roles", Module: "roles", Essential: true},
	{Code: PrivRolesDelete, Name: "Delete roles", Module: "roles", Essential: true},

	{Code: PrivPrivilegesRead, Name: "View privileges", Module: "privileges", Essential: true},
	{Code: PrivPrivilegesCreate, Name: "Create privileges", Module: "privileges", Essential: true},
	{Code: PrivPrivilegesUpdate, Name: "Edit privileges", Module: "privileges", Essential: true},
	{Code: PrivPrivilegesDelete, Name: "Delete privileges", Module: "privileges", Essential: true},

	{Code: PrivPostsRead, Name: "View posts", Module: "posts"},
	{Code: PrivPostsWrite, Name: "Write posts", Module: "posts"},
	{Code: PrivPostsPublish, Name: "Publish posts", Module: "posts"},
	{Code: PrivCommentsModerate, Name: "Moderate comments", Module: "comments"},
	{Code: PrivMediaUpload, Name: "Upload media", Module: "media"},
	{Code: PrivTagsManage, Name: "Manage tags", Module: "tags"},

	{Code: PrivCaptchaTokensIssue, Name: "Issue CAPTCHA validation tokens", Module: "captcha"},
}
