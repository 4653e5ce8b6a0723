package tryon

// pageHTML is the single page. It owns no state of its own: every render
// comes from a server snapshot, delivered over /ws or in an API response.
const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1.0"/>
<title>Fitting Room</title>
<script src="https://cdn.tailwindcss.com"></script>
<style>
body { font-family: Inter, system-ui, -apple-system, Segoe UI, Roboto, sans-serif; }
.drop-zone{width:100%;height:320px;background:#f3f4f6;border:2px dashed #d1d5db;display:flex;align-items:center;justify-content:center;overflow:hidden;cursor:pointer}
.drop-zone.dragover{border-color:#6366f1;background:#eef2ff}
.drop-zone img{max-width:100%;max-height:100%;object-fit:contain}
.loader{border:8px solid #f3f3f3;border-top:8px solid #6366f1;border-radius:50%;width:56px;height:56px;animation:spin 1.2s linear infinite}
@keyframes spin{0%{transform:rotate(0)}100%{transform:rotate(360deg)}}
</style>
</head>
<body class="bg-gray-50 text-gray-800">
<div class="container mx-auto p-4 md:p-8 max-w-5xl">
<header class="text-center mb-8">
<h1 class="text-3xl md:text-4xl font-bold text-gray-900">Fitting Room</h1>
<p class="text-gray-600 mt-2">Upload a photo of a person and a photo of an outfit, then generate the try-on.</p>
</header>
<main class="bg-white p-6 md:p-8 rounded-2xl shadow-lg">
<div class="grid grid-cols-1 md:grid-cols-2 gap-6 mb-6">
<div>
<label class="block text-lg font-semibold mb-2 text-gray-700">1. Person</label>
<div id="person-zone" class="drop-zone rounded-lg mb-2" data-slot="person"><span class="text-gray-500">Click or drop an image</span></div>
<input type="file" id="person-input" accept="image/*" class="hidden">
<span id="person-info" class="text-sm text-gray-500"></span>
</div>
<div>
<label class="block text-lg font-semibold mb-2 text-gray-700">2. Outfit</label>
<div id="outfit-zone" class="drop-zone rounded-lg mb-2" data-slot="outfit"><span class="text-gray-500">Click or drop an image</span></div>
<input type="file" id="outfit-input" accept="image/*" class="hidden">
<span id="outfit-info" class="text-sm text-gray-500"></span>
</div>
</div>
<div id="notice" class="hidden mb-4 p-3 rounded-lg bg-yellow-50 text-yellow-800 text-sm"></div>
<div class="flex justify-center gap-3">
<button id="generate-btn" type="button" disabled class="px-8 py-3 rounded-full bg-indigo-600 text-white font-semibold shadow disabled:opacity-50 disabled:cursor-not-allowed">Generate</button>
<button id="clear-btn" type="button" class="px-6 py-3 rounded-full bg-gray-200 text-gray-700 font-semibold">Clear</button>
</div>
<section class="mt-8">
<div id="busy" class="hidden flex flex-col items-center gap-3"><div class="loader"></div><p class="text-gray-600">Generating...</p></div>
<div id="error-box" class="hidden p-4 rounded-lg bg-red-50 text-red-700"></div>
<div id="result" class="hidden flex flex-col items-center gap-4">
<img id="result-img" alt="Try-on result" class="max-w-full rounded-lg shadow">
<a id="save-link" class="px-6 py-2 rounded-full bg-green-600 text-white font-semibold">Save image</a>
</div>
</section>
</main>
</div>
<script>
const generateBtn = document.getElementById('generate-btn');
const clearBtn = document.getElementById('clear-btn');
const busy = document.getElementById('busy');
const errorBox = document.getElementById('error-box');
const result = document.getElementById('result');
const resultImg = document.getElementById('result-img');
const saveLink = document.getElementById('save-link');
const notice = document.getElementById('notice');

function show(el, visible) { el.classList.toggle('hidden', !visible); }

function renderSlot(slot, view) {
    const zone = document.getElementById(slot + '-zone');
    const info = document.getElementById(slot + '-info');
    if (view && view.filled && view.preview) {
        zone.innerHTML = '';
        const img = document.createElement('img');
        img.src = view.preview.src;
        img.alt = slot;
        zone.appendChild(img);
        let text = view.mediaType || '';
        if (view.preview.width) { text += ' ' + view.preview.width + 'x' + view.preview.height; }
        info.textContent = text;
    } else {
        zone.innerHTML = '<span class="text-gray-500">Click or drop an image</span>';
        info.textContent = '';
    }
}

function render(state) {
    if (!state) { return; }
    renderSlot('person', state.person);
    renderSlot('outfit', state.outfit);
    generateBtn.disabled = !state.canGenerate;
    clearBtn.disabled = state.busy;
    show(busy, state.busy);

    const d = state.display || {};
    show(errorBox, d.errorVisible);
    errorBox.textContent = d.errorVisible ? d.errorMessage : '';
    show(result, d.imageVisible);
    if (d.imageVisible) {
        resultImg.src = d.imageSrc;
        saveLink.href = d.downloadHref;
        saveLink.download = d.downloadName;
    } else {
        resultImg.removeAttribute('src');
        saveLink.removeAttribute('href');
    }

    show(notice, !!state.notice);
    notice.textContent = state.notice || '';
}

async function call(method, url, body) {
    try {
        const response = await fetch(url, { method: method, body: body, credentials: 'same-origin' });
        const data = await response.json();
        render(data.state);
    } catch (error) {
        console.error(method + ' ' + url + ' failed:', error);
    }
}

function upload(slot, file) {
    if (!file) { return; }
    const form = new FormData();
    form.append('file', file);
    call('POST', '/api/upload/' + slot, form);
}

['person', 'outfit'].forEach(slot => {
    const zone = document.getElementById(slot + '-zone');
    const input = document.getElementById(slot + '-input');
    zone.addEventListener('click', () => input.click());
    input.addEventListener('change', e => { upload(slot, e.target.files[0]); input.value = ''; });
    zone.addEventListener('dragover', e => { e.preventDefault(); zone.classList.add('dragover'); });
    zone.addEventListener('dragleave', () => zone.classList.remove('dragover'));
    zone.addEventListener('drop', e => {
        e.preventDefault();
        zone.classList.remove('dragover');
        upload(slot, e.dataTransfer.files[0]);
    });
});

generateBtn.addEventListener('click', () => {
    generateBtn.disabled = true;
    call('POST', '/api/generate');
});
clearBtn.addEventListener('click', () => call('DELETE', '/api/session'));

function connect() {
    const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
    const ws = new WebSocket(scheme + location.host + '/ws');
    ws.onmessage = e => {
        const msg = JSON.parse(e.data);
        if (msg.type === 'state') { render(msg.state); }
    };
    ws.onclose = () => setTimeout(connect, 2000);
}

call('GET', '/api/session');
connect();
</script>
</body>
</html>`
