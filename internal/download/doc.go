// Package download fetches docket PDFs through the browser and confirms
// that each one landed on disk.
//
// The browser saves files itself; this package only navigates, handles the
// one-time CAPTCHA checkpoint and polls the download directory. A record
// whose file does not appear is a per-record failure and never stops the
// remaining downloads.
//
// # CAPTCHA gate
//
// The docket site may show a CAPTCHA before serving a PDF. The first time a
// run sees one, the Prompter blocks until a person has solved it in the
// browser window. The CaptchaGate then stays resolved for the rest of the
// run, since the site keeps one challenge session per browser session.
package download
