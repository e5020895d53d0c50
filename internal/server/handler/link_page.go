package handler

// linkPageHTML is the self-contained bank-linking page. It talks to the
// /plaid/link-token endpoint on the same origin and hands the resulting public
// token back to the user for the exchange step.
const linkPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Connect Your Bank Account - Second Brain</title>
    <script src="https://cdn.plaid.com/link/v2/stable/link-initialize.js"></script>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            margin: 0;
            padding: 20px;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
        }
        .container {
            background: white;
            padding: 40px;
            border-radius: 12px;
            box-shadow: 0 4px 20px rgba(0,0,0,0.1);
            text-align: center;
            max-width: 500px;
            width: 100%;
        }
        h1 { color: #333; margin-bottom: 20px; }
        .logo {
            width: 60px;
            height: 60px;
            background: #667eea;
            border-radius: 50%;
            margin: 0 auto 20px;
            display: flex;
            align-items: center;
            justify-content: center;
            color: white;
            font-size: 24px;
        }
        button {
            background: #667eea;
            color: white;
            border: none;
            padding: 12px 30px;
            border-radius: 6px;
            font-size: 16px;
            cursor: pointer;
            margin: 10px;
            transition: background 0.3s;
        }
        button:hover { background: #5a6fd8; }
        button:disabled { background: #ccc; cursor: not-allowed; }
        .status {
            margin: 20px 0;
            padding: 10px;
            border-radius: 6px;
            font-weight: 500;
        }
        .success { background: #d4edda; color: #155724; border: 1px solid #c3e6cb; }
        .error { background: #f8d7da; color: #721c24; border: 1px solid #f5c6cb; }
        .info { background: #d1ecf1; color: #0c5460; border: 1px solid #b6d4db; }
        .token-display {
            background: #f8f9fa;
            border: 1px solid #dee2e6;
            border-radius: 6px;
            padding: 15px;
            margin: 15px 0;
            font-family: monospace;
            word-break: break-all;
            font-size: 14px;
            border-left: 4px solid #667eea;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo">&#127974;</div>
        <h1>Connect Your Bank Account</h1>
        <p>Secure connection powered by Plaid</p>

        <div style="margin: 20px 0;">
            <label for="countrySelect" style="display: block; margin-bottom: 5px; font-weight: 500;">Select your country:</label>
            <select id="countrySelect" style="padding: 8px; border-radius: 4px; border: 1px solid #ddd; width: 200px;">
                <option value="US">United States</option>
                <option value="CA">Canada</option>
                <option value="GB">United Kingdom</option>
                <option value="IE">Ireland</option>
                <option value="FR">France</option>
                <option value="ES">Spain</option>
                <option value="NL">Netherlands</option>
                <option value="DE">Germany</option>
            </select>
        </div>

        <button id="connectButton" onclick="createLinkTokenAndStart()">
            Connect Bank Account
        </button>

        <div id="status" class="status info" style="display: none;">
            Initializing secure connection...
        </div>

        <div id="tokenSection" style="display: none;">
            <h3>Success! Bank Account Connected</h3>
            <p>Copy the token below, return to Obsidian and paste it into the
            "Exchange Plaid Token" prompt in the plugin settings.</p>

            <h3>Your Plaid Token:</h3>
            <div id="tokenDisplay" class="token-display">
                Token will appear here...
            </div>
            <button onclick="copyToken()">Copy Token</button>
            <button onclick="window.close()">Close Window</button>
        </div>
    </div>

    <script>
        let publicToken = null;
        let linkHandler = null;
        const SERVER_URL = window.location.origin;

        const urlParams = new URLSearchParams(window.location.search);
        const defaultCountry = (urlParams.get('countries') || 'US').split(',')[0];
        document.getElementById('countrySelect').value = defaultCountry;

        function showStatus(message, type = 'info') {
            const statusEl = document.getElementById('status');
            statusEl.textContent = message;
            statusEl.className = 'status ' + type;
            statusEl.style.display = 'block';
        }

        function showToken(token) {
            publicToken = token;
            document.getElementById('tokenDisplay').textContent = token;
            document.getElementById('tokenSection').style.display = 'block';
            document.getElementById('connectButton').style.display = 'none';
        }

        function copyToken() {
            if (publicToken) {
                navigator.clipboard.writeText(publicToken).then(() => {
                    showStatus('Token copied to clipboard!', 'success');
                }).catch(() => {
                    const textArea = document.createElement('textarea');
                    textArea.value = publicToken;
                    document.body.appendChild(textArea);
                    textArea.select();
                    document.execCommand('copy');
                    document.body.removeChild(textArea);
                    showStatus('Token copied to clipboard!', 'success');
                });
            }
        }

        async function createLinkTokenAndStart() {
            showStatus('Creating secure link token...', 'info');
            document.getElementById('connectButton').disabled = true;

            try {
                const selectedCountry = document.getElementById('countrySelect').value;

                const response = await fetch(SERVER_URL + '/plaid/link-token', {
                    method: 'POST',
                    headers: { 'Content-Type': 'application/json' },
                    body: JSON.stringify({
                        user_id: 'obsidian_user_' + Date.now(),
                        country_codes: [selectedCountry]
                    })
                });

                if (!response.ok) {
                    throw new Error('Failed to create link token: ' + response.statusText);
                }

                const payload = await response.json();
                const linkToken = payload.data.link_token;

                showStatus('Link token created, opening Plaid Link...', 'info');

                linkHandler = Plaid.create({
                    token: linkToken,
                    onSuccess: function(public_token, metadata) {
                        showStatus('Bank account connected successfully!', 'success');
                        showToken(public_token);
                    },
                    onLoad: function() {
                        showStatus('Opening secure connection dialog...', 'info');
                    },
                    onExit: function(err, metadata) {
                        document.getElementById('connectButton').disabled = false;
                        if (err != null) {
                            showStatus('Connection failed: ' + err.error_message, 'error');
                        } else {
                            showStatus('Connection cancelled', 'info');
                        }
                    }
                });

                linkHandler.open();
            } catch (error) {
                showStatus('Failed to start connection: ' + error.message, 'error');
                document.getElementById('connectButton').disabled = false;
            }
        }
    </script>
</body>
</html>
`
