// Package module holds the chat command plugins: !water, !song and custom
// !commands. Persistence and API calls run detached through the command
// context.
package module
