package oauth

// loginSuccessHTML is shown in the browser once the redirect has been
// captured. The terminal carries the rest of the flow.
const loginSuccessHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Signed in - gitscribe</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: #f6f8fa;
        }
        .container {
            text-align: center;
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            box-shadow: 0 4px 12px rgba(0,0,0,0.08);
            max-width: 420px;
        }
        h1 { color: #1f883d; font-size: 1.4rem; }
        p { color: #57606a; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Signed in</h1>
        <p>Authentication finished. You can close this window and return to the terminal.</p>
    </div>
</body>
</html>`

// loginFailureHTML is shown when the redirect is unusable; %s receives the reason.
const loginFailureHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Sign-in failed - gitscribe</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: #f6f8fa;
        }
        .container {
            text-align: center;
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            box-shadow: 0 4px 12px rgba(0,0,0,0.08);
            max-width: 420px;
        }
        h1 { color: #cf222e; font-size: 1.4rem; }
        p { color: #57606a; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Sign-in failed</h1>
        <p>%s</p>
        <p>Return to the terminal and try again.</p>
    </div>
</body>
</html>`
